package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/xuri/excelize/v2"
)

// Writer replaces its output with the given records.
type Writer interface {
	Write(products []*models.Product) error
}

type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (w *CSVWriter) Write(products []*models.Product) error {
	return replaceFile(w.path, func(f *os.File) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(Header); err != nil {
			return err
		}
		for _, p := range products {
			if err := cw.Write(Row(p)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

type XLSXWriter struct {
	path  string
	sheet string
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path, sheet: "Sheet1"}
}

func (w *XLSXWriter) Write(products []*models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := toCells(Row(p))
		row[4] = p.PriceIncVAT
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	return replaceFile(w.path, func(out *os.File) error {
		_, err := f.WriteTo(out)
		return err
	})
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// replaceFile writes through a temporary file in the target directory and renames it
// into place, so readers never see a half-written export.
func replaceFile(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
