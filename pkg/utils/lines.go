// =============================================================================
// Sales Aggregator - Line Scanner
// =============================================================================
//
// Definition and transaction files are read line by line. A line ends at
// "\n", "\r\n" or a lone "\r"; the terminator is not part of the line. A final
// line without a terminator still counts.
//
// =============================================================================

package utils

import (
	"bufio"
	"bytes"
	"io"
)

const (
	// initialLineBuffer is the scanner's starting buffer size.
	initialLineBuffer = 64 * 1024

	// MaxLineSize is the longest line a LineScanner accepts.
	MaxLineSize = 1 << 30
)

// NewLineScanner returns a scanner over r that yields one line per Scan.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), MaxLineSize)
	scanner.Split(ScanLines)
	return scanner
}

// ScanLines is a bufio.SplitFunc accepting "\n", "\r\n" and "\r" terminators.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// A "\r" at the end of the buffer may be followed by "\n".
		if i+1 == len(data) && !atEOF {
			return 0, nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
