package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestExamplesEndpointGeneratesQueries(t *testing.T) {
	rr := postJSON(t, Dependencies{SampleRows: 20}, "/v1/examples",
		`{"rows":[{"id":1,"region":"eu"},{"id":2,"region":"us"}],"table_name":"sales"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	var response struct {
		TableName string   `json:"table_name"`
		Examples  []string `json:"examples"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if response.TableName != "sales" {
		t.Fatalf("table_name = %q", response.TableName)
	}
	if len(response.Examples) == 0 {
		t.Fatal("expected at least one example query")
	}
	for _, example := range response.Examples {
		if !strings.Contains(example, "sales") {
			t.Fatalf("example %q does not reference the table", example)
		}
		if !strings.HasPrefix(example, "SELECT") {
			t.Fatalf("example %q is not a SELECT", example)
		}
	}
}

func TestExamplesEndpointDefaultsTableName(t *testing.T) {
	rr := postJSON(t, Dependencies{}, "/v1/examples", `{"rows":[{"a":1}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	var response struct {
		TableName string `json:"table_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if response.TableName != "data" {
		t.Fatalf("table_name = %q", response.TableName)
	}
}
