package schema

import (
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/querybox/querybox/internal/rowset"
)

// Type is the inferred semantic classification of a column, distinct from
// the raw representation of its values.
type Type string

const (
	TypeInteger  Type = "integer"
	TypeDecimal  Type = "decimal"
	TypeBoolean  Type = "boolean"
	TypeDatetime Type = "datetime"
	TypeString   Type = "string"
	TypeUnknown  Type = "unknown"
)

// Schema is the stable column ordering and per-column type for a RowSet.
// It is built once per request and never modified afterwards.
type Schema struct {
	Columns []string        `json:"columns"`
	Types   map[string]Type `json:"types"`
}

// Empty reports whether the schema has no columns.
func (s Schema) Empty() bool { return len(s.Columns) == 0 }

// TypeOf returns the inferred type for a column, or TypeUnknown for
// columns the schema has never seen.
func (s Schema) TypeOf(column string) Type {
	if t, ok := s.Types[column]; ok {
		return t
	}
	return TypeUnknown
}

// sampleWindow bounds how many rows inference looks at per column.
const sampleWindow = 10

var datePatterns = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "1/2/2006"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "1-2-2006"},
}

// Infer derives a Schema from the first rows of the set. The column list
// comes from the first row with its keys sorted, so the ordering is stable
// regardless of map iteration. Inference is single-pass and best-effort:
// it never fails, and columns without a usable sample degrade to unknown.
func Infer(rows rowset.RowSet) Schema {
	inferred := Schema{Columns: []string{}, Types: map[string]Type{}}
	if len(rows) == 0 {
		return inferred
	}

	for column := range rows[0] {
		inferred.Columns = append(inferred.Columns, column)
	}
	sort.Strings(inferred.Columns)

	window := len(rows)
	if window > sampleWindow {
		window = sampleWindow
	}
	for _, column := range inferred.Columns {
		inferred.Types[column] = inferColumn(rows[:window], column)
	}
	return inferred
}

func inferColumn(sample rowset.RowSet, column string) Type {
	for _, row := range sample {
		value, ok := row[column]
		if !ok || value.IsNull() {
			continue
		}
		return typeOfValue(value)
	}
	return TypeUnknown
}

func typeOfValue(value rowset.Value) Type {
	switch value.Kind() {
	case rowset.KindBool:
		return TypeBoolean
	case rowset.KindNumber:
		if value.AsNumber() == math.Trunc(value.AsNumber()) {
			return TypeInteger
		}
		return TypeDecimal
	case rowset.KindTime:
		return TypeDatetime
	case rowset.KindString:
		if _, ok := ParseDate(value.AsString()); ok {
			return TypeDatetime
		}
		return TypeString
	default:
		return TypeUnknown
	}
}

// ParseDate reports whether text matches one of the recognized date
// shapes and parses as a real calendar date.
func ParseDate(text string) (time.Time, bool) {
	for _, candidate := range datePatterns {
		if !candidate.pattern.MatchString(text) {
			continue
		}
		parsed, err := time.Parse(candidate.layout, text)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return time.Time{}, false
}
