package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by writing a local Excel workbook.
type XLSXWriter struct {
	path string
	mu   sync.Mutex
}

// NewXLSXWriter creates a writer for the workbook at path. The file is created on first write.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("opening %s: %w", w.path, err)
}

// save writes the workbook, dropping the default sheet of a fresh file.
func (w *XLSXWriter) save(f *excelize.File, fresh bool) error {
	if fresh {
		if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 && f.SheetCount > 1 {
			if err := f.DeleteSheet("Sheet1"); err != nil {
				return fmt.Errorf("removing default sheet: %w", err)
			}
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

// Write replaces every named sheet with the table rows.
func (w *XLSXWriter) Write(_ context.Context, tables []Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, fresh, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := headerStyle(f)
	if err != nil {
		return err
	}

	for _, t := range tables {
		if idx, _ := f.GetSheetIndex(t.Name); idx >= 0 {
			if err := f.DeleteSheet(t.Name); err != nil {
				return fmt.Errorf("replacing sheet %s: %w", t.Name, err)
			}
		}
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", t.Name, err)
		}
		for i, row := range t.Rows {
			if err := setRow(f, t.Name, i+1, row); err != nil {
				return err
			}
		}
		if len(t.Rows) > 0 {
			if err := f.SetRowStyle(t.Name, 1, 1, header); err != nil {
				return fmt.Errorf("styling sheet %s: %w", t.Name, err)
			}
			if err := freezeHeader(f, t.Name); err != nil {
				return err
			}
		}
	}

	return w.save(f, fresh)
}

// AppendLog appends row to the log sheet, writing header first when the sheet is empty.
func (w *XLSXWriter) AppendLog(_ context.Context, sheet string, header, row []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, fresh, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	next := len(rows) + 1
	if len(rows) == 0 {
		if err := setRow(f, sheet, 1, header); err != nil {
			return err
		}
		style, err := headerStyle(f)
		if err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
			return fmt.Errorf("styling sheet %s: %w", sheet, err)
		}
		if err := freezeHeader(f, sheet); err != nil {
			return err
		}
		next = 2
	}
	if err := setRow(f, sheet, next, row); err != nil {
		return err
	}

	return w.save(f, fresh)
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("resolving cell for row %d: %w", rowNum, err)
	}
	row := values
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9EAD3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("creating header style: %w", err)
	}
	return id, nil
}

func freezeHeader(f *excelize.File, sheet string) error {
	err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("freezing header of %s: %w", sheet, err)
	}
	return nil
}
