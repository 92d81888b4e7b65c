package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/querybox/querybox/internal/sandbox"
)

type queryRequest struct {
	rowPayload
	Query     string `json:"query" validate:"required"`
	TableName string `json:"table_name"`
	TimeoutMs int    `json:"timeout_ms" validate:"gte=0"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sandbox == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SANDBOX_NOT_CONFIGURED", "sandbox executor is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if err := validate.Struct(request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), false, nil)
		return
	}

	rows, err := request.resolve(deps.MaxRequestRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROWS", err.Error(), false, nil)
		return
	}

	timeout := time.Duration(request.TimeoutMs) * time.Millisecond
	if deps.MaxTimeout > 0 && timeout > deps.MaxTimeout {
		timeout = deps.MaxTimeout
	}

	result := deps.Sandbox.Execute(r.Context(), sandbox.Request{
		Query:     request.Query,
		Rows:      rows,
		TableName: request.TableName,
		Timeout:   timeout,
	})

	// Sandbox-level failures (rejected or failed queries) are part of the
	// result envelope, not transport errors.
	writeJSON(w, http.StatusOK, result)
}
