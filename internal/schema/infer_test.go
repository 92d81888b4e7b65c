package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/querybox/querybox/internal/rowset"
)

func TestInferColumnOrderIsStable(t *testing.T) {
	rows := rowset.RowSet{
		{"b": rowset.Number(1), "a": rowset.String("x")},
		{"a": rowset.String("y"), "b": rowset.Number(2)},
	}

	inferred := Infer(rows)
	if len(inferred.Columns) != 2 || inferred.Columns[0] != "a" || inferred.Columns[1] != "b" {
		t.Fatalf("columns = %v", inferred.Columns)
	}
}

// Permuting the rows must not change the inferred schema. This holds
// for row sets whose rows share the same keys and value types; the
// column set itself always comes from the first row.
func TestInferIsInvariantToRowOrder(t *testing.T) {
	rows := rowset.RowSet{
		{"id": rowset.Number(1), "name": rowset.String("a"), "score": rowset.Number(1.5)},
		{"id": rowset.Number(2), "name": rowset.String("b"), "score": rowset.Number(2.5)},
		{"id": rowset.Number(3), "name": rowset.String("c"), "score": rowset.Number(3.5)},
	}
	permutations := []rowset.RowSet{
		{rows[0], rows[1], rows[2]},
		{rows[2], rows[0], rows[1]},
		{rows[1], rows[2], rows[0]},
	}

	want := Infer(permutations[0])
	for i, permuted := range permutations[1:] {
		if got := Infer(permuted); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %d: schema = %+v, want %+v", i+1, got, want)
		}
	}
}

func TestInferTypes(t *testing.T) {
	rows := rowset.RowSet{
		{
			"id":     rowset.Number(1),
			"score":  rowset.Number(1.5),
			"active": rowset.Bool(true),
			"name":   rowset.String("alice"),
			"when":   rowset.Time(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		},
	}

	inferred := Infer(rows)
	want := map[string]Type{
		"id":     TypeInteger,
		"score":  TypeDecimal,
		"active": TypeBoolean,
		"name":   TypeString,
		"when":   TypeDatetime,
	}
	for column, wantType := range want {
		if got := inferred.TypeOf(column); got != wantType {
			t.Fatalf("type of %q = %q, want %q", column, got, wantType)
		}
	}
}

func TestInferDateStrings(t *testing.T) {
	tests := []struct {
		text string
		want Type
	}{
		{"2024-01-02", TypeDatetime},
		{"1/2/2024", TypeDatetime},
		{"01-02-2024", TypeDatetime},
		{"2024-13-45", TypeString},
		{"not a date", TypeString},
		{"2024-01-02T10:00:00", TypeString},
	}
	for _, tt := range tests {
		inferred := Infer(rowset.RowSet{{"d": rowset.String(tt.text)}})
		if got := inferred.TypeOf("d"); got != tt.want {
			t.Fatalf("type of %q = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestInferSkipsLeadingNulls(t *testing.T) {
	rows := rowset.RowSet{
		{"v": rowset.Null()},
		{"v": rowset.Null()},
		{"v": rowset.Number(2)},
	}
	inferred := Infer(rows)
	if got := inferred.TypeOf("v"); got != TypeInteger {
		t.Fatalf("type = %q, want integer", got)
	}
}

func TestInferAllNullColumnIsUnknown(t *testing.T) {
	rows := rowset.RowSet{{"v": rowset.Null()}}
	inferred := Infer(rows)
	if got := inferred.TypeOf("v"); got != TypeUnknown {
		t.Fatalf("type = %q, want unknown", got)
	}
}

func TestInferSampleWindowBoundsTheScan(t *testing.T) {
	rows := rowset.RowSet{}
	for i := 0; i < sampleWindow; i++ {
		rows = append(rows, rowset.Row{"v": rowset.Null()})
	}
	// The first non-null value sits past the window, so it is never seen.
	rows = append(rows, rowset.Row{"v": rowset.Number(1)})

	inferred := Infer(rows)
	if got := inferred.TypeOf("v"); got != TypeUnknown {
		t.Fatalf("type = %q, want unknown", got)
	}
}

func TestInferEmptyRowSet(t *testing.T) {
	inferred := Infer(rowset.RowSet{})
	if !inferred.Empty() {
		t.Fatalf("schema = %+v, want empty", inferred)
	}
}

func TestParseDateRejectsImpossibleDates(t *testing.T) {
	if _, ok := ParseDate("2024-02-30"); ok {
		t.Fatal("february 30th should not parse")
	}
	if parsed, ok := ParseDate("2024-02-29"); !ok || parsed.Day() != 29 {
		t.Fatalf("leap day parse = %v %v", parsed, ok)
	}
}
