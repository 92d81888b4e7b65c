package rowset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FromCSV decodes a CSV document with a header row into a RowSet. Cell
// values are sniffed: empty cells become null, numeric text becomes a
// number, true/false become booleans, everything else stays a string.
func FromCSV(reader io.Reader) (RowSet, error) {
	decoder := csv.NewReader(reader)
	decoder.TrimLeadingSpace = true

	header, err := decoder.Read()
	if err == io.EOF {
		return RowSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	rows := RowSet{}
	for {
		record, err := decoder.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := Row{}
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			row[columns[i]] = sniffCell(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromCSVString is a convenience wrapper for callers that supply the
// dataset inline as a single string.
func FromCSVString(data string) (RowSet, error) {
	return FromCSV(strings.NewReader(data))
}

func sniffCell(cell string) Value {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Null()
	}
	if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(number)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return String(trimmed)
}
