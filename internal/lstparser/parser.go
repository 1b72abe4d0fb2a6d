// =============================================================================
// Sales Aggregator - Definition File Parser
// =============================================================================
//
// This module reads the reference definition files (branch.lst,
// commodity.lst). Each line holds one "code,name" record:
//
//   001,Tokyo
//   002,Osaka
//
// RULES:
//   - Lines end at "\n", "\r\n" or a lone "\r".
//   - A missing file is FileNotFound.
//   - Every line must split into exactly two comma-separated fields, after
//     dropping trailing empty fields ("001,Tokyo," is still two fields, a
//     blank line is one).
//   - The code must match the domain pattern.
//   - A later duplicate code overwrites the earlier one (last line wins).
//
// Any other failure (read error, close error) is IOFailure.
//
// =============================================================================

package lstparser

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Load reads dir/fileName and builds a reference table.
//
// PARAMETERS:
//   - dir: The input directory.
//   - fileName: The definition file name inside dir.
//   - codePattern: The pattern every code must match.
//
// RETURNS:
//   - The reference table, labelled with fileName's base name (without
//     extension) until the caller relabels it.
//   - A *validation.SalesError on failure.
func Load(dir, fileName string, codePattern *regexp.Regexp) (table *types.ReferenceTable, err error) {
	file, err := os.Open(filepath.Join(dir, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, validation.New(validation.FileNotFound, fileName, "")
	}
	if err != nil {
		return nil, validation.Wrap(validation.IOFailure, fileName, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			table, err = nil, validation.Wrap(validation.IOFailure, fileName, cerr)
		}
	}()

	label := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return Parse(file, fileName, label, codePattern)
}

// Parse reads definition records from r.
//
// PARAMETERS:
//   - r: The definition file content.
//   - fileName: The name used in error messages.
//   - label: The domain label stored on the table.
//   - codePattern: The pattern every code must match.
func Parse(r io.Reader, fileName, label string, codePattern *regexp.Regexp) (*types.ReferenceTable, error) {
	table := types.NewReferenceTable(label)
	scanner := utils.NewLineScanner(r)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		fields := SplitFields(scanner.Text())
		if len(fields) != 2 {
			return nil, validation.AtLine(validation.InvalidFormat, fileName, lineNumber,
				"expected 2 fields, got %d", len(fields))
		}

		code, name := fields[0], fields[1]
		if !validation.ValidateCode(codePattern, code) {
			return nil, validation.AtLine(validation.InvalidFormat, fileName, lineNumber,
				"code %q does not match %s", code, codePattern)
		}

		table.Set(code, name)
	}

	if err := scanner.Err(); err != nil {
		return nil, validation.Wrap(validation.IOFailure, fileName, err)
	}

	return table, nil
}

// SplitFields splits a definition line on commas and drops trailing empty
// fields. Interior empty fields are kept.
//
// EXAMPLES:
//   "001,Tokyo"   -> ["001", "Tokyo"]
//   "001,Tokyo,," -> ["001", "Tokyo"]
//   "001,,Tokyo"  -> ["001", "", "Tokyo"]
//   ""            -> [""]
func SplitFields(line string) []string {
	fields := strings.Split(line, ",")

	end := len(fields)
	for end > 0 && fields[end-1] == "" {
		end--
	}

	// An all-empty line still counts as one (empty) field.
	if end == 0 {
		return []string{""}
	}

	return fields[:end]
}
