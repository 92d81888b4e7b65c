package api

import (
	"encoding/json"
	"net/http"

	"github.com/querybox/querybox/internal/examples"
	"github.com/querybox/querybox/internal/sandbox"
	"github.com/querybox/querybox/internal/schema"
)

type examplesRequest struct {
	rowPayload
	TableName string `json:"table_name"`
}

type examplesResponse struct {
	TableName string        `json:"table_name"`
	Schema    schema.Schema `json:"schema"`
	Examples  []string      `json:"examples"`
}

func handleExamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request examplesRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid examples request body", false, map[string]any{"details": err.Error()})
		return
	}

	rows, err := request.resolve(deps.MaxRequestRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROWS", err.Error(), false, nil)
		return
	}

	tableName := request.TableName
	if tableName == "" {
		tableName = sandbox.DefaultTableName
	}

	// Example generation only inspects a small sample; cap the rows it walks
	// so large payloads do not slow the endpoint down.
	sample := rows
	if deps.SampleRows > 0 && len(sample) > deps.SampleRows {
		sample = sample[:deps.SampleRows]
	}

	inferred := schema.Infer(sample)
	writeJSON(w, http.StatusOK, examplesResponse{
		TableName: tableName,
		Schema:    inferred,
		Examples:  examples.Generate(inferred, sample, tableName),
	})
}
