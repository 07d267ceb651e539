// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet is one named table of a workbook.
type Sheet struct {
	Name    string
	Header  []string
	Records [][]string
}

// defaultSheet is the sheet excelize creates in a new file.
const defaultSheet = "Sheet1"

// WriteWorkbook writes sheets into a single XLSX file at path, one worksheet
// per Sheet in the given order. Every cell is written as text.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sh.Name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sh.Name, err)
		}

		if err := writeSheetRow(f, sh.Name, 1, sh.Header); err != nil {
			return err
		}
		for r, rec := range sh.Records {
			if err := writeSheetRow(f, sh.Name, r+2, rec); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write %s: %w", path, err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
