package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/querybox/querybox/internal/rowset"
)

var validate = validator.New()

// rowPayload is the shared row-bearing part of the request bodies. Rows may
// arrive either as structured JSON objects or as a CSV document in data;
// exactly one of the two may be set.
type rowPayload struct {
	Rows rowset.RowSet `json:"rows"`
	Data string        `json:"data"`
}

func (p rowPayload) resolve(maxRows int) (rowset.RowSet, error) {
	if len(p.Rows) > 0 && p.Data != "" {
		return nil, fmt.Errorf("specify only one of rows or data")
	}
	rows := p.Rows
	if p.Data != "" {
		parsed, err := rowset.FromCSVString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("parse csv data: %w", err)
		}
		rows = parsed
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("row set has %d rows, limit is %d", len(rows), maxRows)
	}
	return rows, nil
}
