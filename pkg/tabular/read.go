package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadCSV decodes data and splits it into records. Rows may have differing
// field counts; quoting errors abort the read.
func ReadCSV(data []byte) ([][]string, error) {
	records, _, err := ReadCSVWithEncoding(data)
	return records, err
}

// ReadCSVWithEncoding is ReadCSV that also reports the source encoding
// Decode detected.
func ReadCSVWithEncoding(data []byte) ([][]string, string, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrParse, err)
	}
	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = false

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrParse, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, "", fmt.Errorf("%w: missing header", ErrParse)
	}
	return records, enc, nil
}

// ReadXLSX returns the records of the first worksheet of an XLSX workbook.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrParse, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrParse)
	}
	return rows, nil
}
