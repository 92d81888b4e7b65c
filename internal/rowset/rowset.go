package rowset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the representations a cell value can take. Values
// arrive untyped from callers; semantic typing happens later, during
// schema inference.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
)

// Value is a tagged union over the cell representations the sandbox
// accepts: null, boolean, number, string, or a point in time.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	timeVal time.Time
}

func Null() Value            { return Value{kind: KindNull} }
func Bool(v bool) Value      { return Value{kind: KindBool, boolVal: v} }
func Number(v float64) Value { return Value{kind: KindNumber, numVal: v} }
func String(v string) Value  { return Value{kind: KindString, strVal: v} }
func Time(v time.Time) Value { return Value{kind: KindTime, timeVal: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() bool      { return v.boolVal }
func (v Value) AsNumber() float64 { return v.numVal }
func (v Value) AsString() string  { return v.strVal }
func (v Value) AsTime() time.Time { return v.timeVal }

// String renders the value for diagnostics and query literals.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'f', -1, 64)
	case KindTime:
		return v.timeVal.Format(time.RFC3339)
	default:
		return v.strVal
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindNumber:
		return json.Marshal(v.numVal)
	case KindTime:
		return json.Marshal(v.timeVal.Format(time.RFC3339))
	default:
		return json.Marshal(v.strVal)
	}
}

func (v *Value) UnmarshalJSON(raw []byte) error {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*v = FromAny(decoded)
	return nil
}

// FromAny coerces a loosely typed value, such as a decoded JSON field or
// a database/sql scan target, into a Value. Unrecognized types degrade to
// their string rendering rather than failing.
func FromAny(raw any) Value {
	switch typed := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(typed)
	case float64:
		return Number(typed)
	case float32:
		return Number(float64(typed))
	case int:
		return Number(float64(typed))
	case int8:
		return Number(float64(typed))
	case int16:
		return Number(float64(typed))
	case int32:
		return Number(float64(typed))
	case int64:
		return Number(float64(typed))
	case uint:
		return Number(float64(typed))
	case uint8:
		return Number(float64(typed))
	case uint16:
		return Number(float64(typed))
	case uint32:
		return Number(float64(typed))
	case uint64:
		return Number(float64(typed))
	case string:
		return String(typed)
	case []byte:
		return String(string(typed))
	case time.Time:
		return Time(typed)
	default:
		return String(fmt.Sprint(typed))
	}
}

// Row maps column names to cell values. Column names are unique within a
// row; ordering comes from the inferred schema, not the row itself.
type Row map[string]Value

// RowSet is an ordered sequence of rows. Row order is significant: it is
// the order the rows are materialized in, which LIMIT clauses observe.
type RowSet []Row
