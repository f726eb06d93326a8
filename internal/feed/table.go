package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// table is a header plus data rows read from a CSV file or the first sheet of
// an XLSX workbook.
type table struct {
	path    string
	header  []string
	records [][]string
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.TrimPrefix(name, "\ufeff")
	return columnNameSanitizer.Replace(name)
}

// findTable locates <dir>/<name>.csv, falling back to <name>.xlsx.
func findTable(dir, name string) (string, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("feed file %s.csv or %s.xlsx not found in %s: %w", name, name, dir, os.ErrNotExist)
}

func readTable(path string) (*table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSXTable(path)
	}
	return readCSVTable(path)
}

func readCSVTable(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &table{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	t := &table{path: path, header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		t.records = append(t.records, record)
	}
	return t, nil
}

// readXLSXTable reads the first sheet of a workbook.
func readXLSXTable(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &table{path: path}, nil
	}
	return &table{path: path, header: rows[0], records: rows[1:]}, nil
}

// colIndex returns the index of the first header matching any alias, or -1.
func (t *table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// row gives typed access to one record.
type row struct {
	record []string
	line   int
}

func (r row) get(idx int) string {
	if idx < 0 || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func cleanNumber(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), ",", "")
}

// quantity parses a required quantity. Missing or non-numeric values are
// rejected with ErrInvalidQuantity.
func (r row) quantity(idx int) (float64, error) {
	v := cleanNumber(r.get(idx))
	if v == "" {
		return 0, fmt.Errorf("line %d: empty quantity: %w", r.line, domain.ErrInvalidQuantity)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: quantity %q: %w", r.line, v, domain.ErrInvalidQuantity)
	}
	return f, nil
}

func (r row) float(idx int) (float64, error) {
	v := cleanNumber(r.get(idx))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: number %q: %w", r.line, v, err)
	}
	return f, nil
}

func (r row) amount(idx int) (decimal.Decimal, error) {
	v := cleanNumber(r.get(idx))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("line %d: amount %q: %w", r.line, v, err)
	}
	return d, nil
}

func (r row) optionalInt(idx int) (*int, error) {
	v := cleanNumber(r.get(idx))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: integer %q: %w", r.line, v, err)
	}
	n := int(f)
	return &n, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
	"02/01/2006",
}

func (r row) date(idx int) (time.Time, error) {
	v := r.get(idx)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("line %d: unrecognised date %q", r.line, v)
}
