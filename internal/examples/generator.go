// Package examples produces illustrative SELECT statements for an
// inferred schema. The output is advisory: nothing here executes a query.
package examples

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/querybox/querybox/internal/rowset"
	"github.com/querybox/querybox/internal/schema"
)

const (
	maxExamples  = 6
	previewLimit = 10

	minGroupCardinality = 2
	maxGroupCardinality = 9
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Generate returns up to six example queries for the given schema and
// sample rows, always in the same order for the same input: a limited
// select-all, a row count, a projection, an aggregate over the first
// numeric column, a group-by over the first low-cardinality column, and a
// filter over the first column.
func Generate(inferred schema.Schema, sample rowset.RowSet, tableName string) []string {
	if inferred.Empty() {
		return []string{}
	}
	table := quoteIdent(tableName)

	queries := []string{
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, previewLimit),
		fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", table),
	}

	projected := inferred.Columns
	if len(projected) > 3 {
		projected = projected[:3]
	}
	quoted := make([]string, len(projected))
	for i, column := range projected {
		quoted[i] = quoteIdent(column)
	}
	queries = append(queries, fmt.Sprintf("SELECT %s FROM %s LIMIT %d", strings.Join(quoted, ", "), table, previewLimit))

	if numeric, ok := firstNumericColumn(inferred); ok {
		queries = append(queries, fmt.Sprintf(
			"SELECT AVG(%s) AS avg_%s, MAX(%s) AS max_%s FROM %s",
			quoteIdent(numeric), aliasName(numeric), quoteIdent(numeric), aliasName(numeric), table,
		))
	}

	if grouped, ok := firstGroupableColumn(inferred, sample); ok {
		queries = append(queries, fmt.Sprintf(
			"SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY count DESC",
			quoteIdent(grouped), table, quoteIdent(grouped),
		))
	}

	queries = append(queries, filterExample(inferred, sample, table))

	if len(queries) > maxExamples {
		queries = queries[:maxExamples]
	}
	return queries
}

func firstNumericColumn(inferred schema.Schema) (string, bool) {
	for _, column := range inferred.Columns {
		switch inferred.TypeOf(column) {
		case schema.TypeInteger, schema.TypeDecimal:
			return column, true
		}
	}
	return "", false
}

// firstGroupableColumn picks the first column whose sample cardinality is
// low enough to group meaningfully but high enough to be non-trivial.
func firstGroupableColumn(inferred schema.Schema, sample rowset.RowSet) (string, bool) {
	for _, column := range inferred.Columns {
		distinct := map[string]struct{}{}
		for _, row := range sample {
			value, ok := row[column]
			if !ok || value.IsNull() {
				continue
			}
			distinct[value.String()] = struct{}{}
		}
		if len(distinct) >= minGroupCardinality && len(distinct) <= maxGroupCardinality {
			return column, true
		}
	}
	return "", false
}

func filterExample(inferred schema.Schema, sample rowset.RowSet, table string) string {
	column := inferred.Columns[0]
	for _, row := range sample {
		value, ok := row[column]
		if !ok || value.IsNull() {
			continue
		}
		return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", table, quoteIdent(column), renderLiteral(inferred.TypeOf(column), value))
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s IS NOT NULL", table, quoteIdent(column))
}

func renderLiteral(columnType schema.Type, value rowset.Value) string {
	switch columnType {
	case schema.TypeInteger:
		return strconv.FormatInt(int64(value.AsNumber()), 10)
	case schema.TypeDecimal:
		return strconv.FormatFloat(value.AsNumber(), 'f', -1, 64)
	case schema.TypeBoolean:
		if value.AsBool() {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "'" + strings.ReplaceAll(value.String(), "'", "''") + "'"
	}
}

func quoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func aliasName(name string) string {
	var builder strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
