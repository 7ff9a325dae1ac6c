// Package excelcheck runs a cheap local sanity check on workbooks before
// they are shipped to the accounting backend: the file must be a real xlsx
// with at least one sheet holding at least one non-empty row. Structural
// validation against the declared category stays backend-side.
package excelcheck

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RequiredExtension is the only upload extension the backend accepts.
const RequiredExtension = ".xlsx"

// CheckName rejects filenames without the required extension.
func CheckName(filename string) error {
	if !strings.EqualFold(filepath.Ext(filename), RequiredExtension) {
		return fmt.Errorf("seuls les fichiers %s sont autorisés (fichier invalide : %s)", RequiredExtension, filename)
	}
	return nil
}

// Check verifies that r contains a readable workbook with data.
func Check(filename string, r io.Reader) error {
	if err := CheckName(filename); err != nil {
		return err
	}

	wb, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("%s is not a readable xlsx workbook: %w", filename, err)
	}
	return inspect(wb, filename)
}

// CheckFile verifies the workbook at path.
func CheckFile(path string) error {
	if err := CheckName(path); err != nil {
		return err
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("%s is not a readable xlsx workbook: %w", path, err)
	}
	return inspect(wb, path)
}

func inspect(wb *excelize.File, name string) error {
	defer func() {
		_ = wb.Close()
	}()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%s contains no sheets", name)
	}

	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					return nil
				}
			}
		}
	}

	return fmt.Errorf("%s has no non-empty rows", name)
}
