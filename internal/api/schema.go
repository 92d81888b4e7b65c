package api

import (
	"encoding/json"
	"net/http"

	"github.com/querybox/querybox/internal/schema"
)

type schemaRequest struct {
	rowPayload
}

type schemaResponse struct {
	RowCount int           `json:"row_count"`
	Schema   schema.Schema `json:"schema"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request schemaRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid schema request body", false, map[string]any{"details": err.Error()})
		return
	}

	rows, err := request.resolve(deps.MaxRequestRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROWS", err.Error(), false, nil)
		return
	}

	writeJSON(w, http.StatusOK, schemaResponse{
		RowCount: len(rows),
		Schema:   schema.Infer(rows),
	})
}
