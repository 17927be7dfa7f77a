package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// table is one worksheet: a name and its raw rows, header first.
type table struct {
	Name string
	Rows [][]string
}

func parseTables(ext string, data []byte) ([]table, error) {
	switch ext {
	case ".csv":
		return parseCSV(data)
	default:
		return parseWorkbook(data)
	}
}

func parseWorkbook(data []byte) ([]table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx format: %w", err)
	}
	defer f.Close()

	var tables []table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		tables = append(tables, table{Name: name, Rows: rows})
	}
	return tables, nil
}

func parseCSV(data []byte) ([]table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return []table{{Name: "csv", Rows: rows}}, nil
}
