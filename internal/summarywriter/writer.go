// =============================================================================
// Sales Aggregator - Summary Writer Module
// =============================================================================
//
// This module serializes a reference table into a summary file. Every code of
// the table produces one line, without a header:
//
//   001,Tokyo,3000
//   002,Osaka,0
//
// Codes that never appeared in a transaction are written with a total of 0.
//
// The file is written to a temporary sibling and renamed into place, so a
// failed write leaves any previous summary untouched.
//
// =============================================================================

package summarywriter

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
)

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// WriteOptions contains options for summary serialization.
type WriteOptions struct {
	// Order is the row order.
	// Default: types.OrderSorted
	Order types.Order

	// Separator is placed between the code, name and total fields.
	// Default: ","
	Separator string

	// LineEnding terminates every row, including the last.
	// Default: "\n"
	LineEnding string
}

// DefaultWriteOptions returns the default write options.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Order:      types.OrderSorted,
		Separator:  ",",
		LineEnding: "\n",
	}
}

// =============================================================================
// MAIN WRITE FUNCTIONS
// =============================================================================

// Write writes table to dir/fileName using the default options.
func Write(dir, fileName string, table *types.ReferenceTable) error {
	return WriteWithOptions(dir, fileName, table, DefaultWriteOptions())
}

// WriteWithOptions writes table to dir/fileName.
//
// RETURNS:
//   - nil on success.
//   - IOFailure naming fileName if the file cannot be created, written,
//     flushed, closed or moved into place.
func WriteWithOptions(dir, fileName string, table *types.ReferenceTable, options WriteOptions) error {
	path := filepath.Join(dir, fileName)

	err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		return Render(w, table, options)
	})
	if err != nil {
		return validation.Wrap(validation.IOFailure, fileName, err)
	}

	return nil
}

// Render writes the rows of table to w.
func Render(w io.Writer, table *types.ReferenceTable, options WriteOptions) error {
	options = withDefaults(options)

	for _, row := range table.Rows(options.Order) {
		line := row.Code + options.Separator +
			row.Name + options.Separator +
			strconv.FormatInt(row.Total, 10) + options.LineEnding

		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Code, err)
		}
	}

	return nil
}

func withDefaults(options WriteOptions) WriteOptions {
	defaults := DefaultWriteOptions()
	if options.Order == "" {
		options.Order = defaults.Order
	}
	if options.Separator == "" {
		options.Separator = defaults.Separator
	}
	if options.LineEnding == "" {
		options.LineEnding = defaults.LineEnding
	}
	return options
}
