// =============================================================================
// Sales Aggregator - Workbook Export Module
// =============================================================================
//
// This module writes the summaries into a single XLSX workbook, one sheet per
// reference table:
//
//   | Code | Name  | Total |
//   |------|-------|-------|
//   | 001  | Tokyo | 3000  |
//   | 002  | Osaka | 0     |
//   | TOTAL|       | 3000  |
//
// The sheet is named after the table's label. Codes are stored as text so
// leading zeros survive; totals are stored as numbers.
//
// =============================================================================

package xlsxexport

import (
	"fmt"
	"io"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize creates with a new workbook.
const defaultSheet = "Sheet1"

// Header is the first row of every sheet.
var Header = []string{"Code", "Name", "Total"}

// FooterLabel marks the grand total row.
const FooterLabel = "TOTAL"

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Export writes one sheet per table to the workbook at path.
//
// PARAMETERS:
//   - path: The workbook location; an existing file is replaced.
//   - order: The row order inside each sheet.
//   - tables: The tables to export, in sheet order. Labels must be unique.
//
// RETURNS:
//   - An error if the workbook cannot be built or written.
func Export(path string, order types.Order, tables ...*types.ReferenceTable) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, table.Label); err != nil {
				return fmt.Errorf("failed to name sheet '%s': %w", table.Label, err)
			}
		} else if _, err := f.NewSheet(table.Label); err != nil {
			return fmt.Errorf("failed to create sheet '%s': %w", table.Label, err)
		}

		if err := writeSheet(f, table, order, headerStyle); err != nil {
			return fmt.Errorf("error writing sheet '%s': %w", table.Label, err)
		}
	}

	f.SetActiveSheet(0)

	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

// writeSheet fills one sheet with the rows of table.
func writeSheet(f *excelize.File, table *types.ReferenceTable, order types.Order, headerStyle int) error {
	sheet := table.Label

	if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	rows := table.Rows(order)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{row.Code, row.Name, row.Total}); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Code, err)
		}
		// Keep codes such as "001" as text.
		if err := f.SetCellStr(sheet, cell, row.Code); err != nil {
			return fmt.Errorf("failed to write code %s: %w", row.Code, err)
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(rows)+2)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, footer, &[]interface{}{FooterLabel, "", table.GrandTotal()}); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	return f.SetColWidth(sheet, "B", "B", 24)
}
