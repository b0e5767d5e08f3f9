// Package backup snapshots the whole database into a multi-sheet xlsx
// workbook and restores it back, plus a daily scheduler that delivers the
// snapshot to every admin. One sheet per table, first row is the column
// headers; import replaces table contents wholesale inside a transaction.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// tables lists every exported table in dependency-free order. Import
// processes them in the same order.
var tables = []string{
	"settings",
	"features",
	"admins",
	"admins_pending",
	"bans",
	"bans_pending",
	"system_prompts",
	"users",
	"user_changes",
	"messages",
}

// ExportXLSX writes all tables into an xlsx workbook at outPath, creating
// parent directories as needed. Empty tables produce a sheet with no rows.
func ExportXLSX(db *gorm.DB, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	wb := excelize.NewFile()
	defer wb.Close()

	for i, table := range tables {
		if i == 0 {
			// Reuse the default sheet for the first table.
			if err := wb.SetSheetName(wb.GetSheetName(0), table); err != nil {
				return err
			}
		} else if _, err := wb.NewSheet(table); err != nil {
			return err
		}
		if err := exportTable(db, wb, table); err != nil {
			return fmt.Errorf("export %s: %w", table, err)
		}
	}
	return wb.SaveAs(outPath)
}

func exportTable(db *gorm.DB, wb *excelize.File, table string) error {
	rows, err := db.Raw("SELECT * FROM " + table).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	n := 0
	wroteHeader := false
	for rows.Next() {
		if !wroteHeader {
			header := make([]any, len(cols))
			for i, c := range cols {
				header[i] = c
			}
			if err := wb.SetSheetRow(table, "A1", &header); err != nil {
				return err
			}
			wroteHeader = true
		}

		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		vals := make([]any, len(cols))
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			} else {
				vals[i] = v
			}
		}

		n++
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(table, cell, &vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ImportXLSX replaces the contents of every table that has a sheet in the
// workbook. Tables without a sheet are left alone. The whole import runs
// in one transaction, so a malformed workbook leaves the database intact.
//
// Only trusted admin uploads should ever reach this function.
func ImportXLSX(db *gorm.DB, xlsxPath string) error {
	wb, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return err
	}
	defer wb.Close()

	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			idx, err := wb.GetSheetIndex(table)
			if err != nil || idx < 0 {
				continue
			}
			if err := importTable(tx, wb, table); err != nil {
				return fmt.Errorf("import %s: %w", table, err)
			}
		}
		return nil
	})
}

func importTable(tx *gorm.DB, wb *excelize.File, table string) error {
	rows, err := wb.GetRows(table)
	if err != nil {
		return err
	}

	if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
		return err
	}
	if len(rows) < 2 {
		return nil
	}

	headers := rows[0]
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(headers)), ",")
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(headers, ","), placeholders)

	for _, row := range rows[1:] {
		vals := make([]any, len(headers))
		for i := range headers {
			if i < len(row) && row[i] != "" {
				vals[i] = row[i]
			} else {
				vals[i] = nil
			}
		}
		if err := tx.Exec(sql, vals...).Error; err != nil {
			return err
		}
	}
	return nil
}
