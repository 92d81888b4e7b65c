package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/querybox/querybox/internal/rowset"
	"github.com/querybox/querybox/internal/schema"
)

// Table is the ephemeral relation one request materializes its rows into.
// The name is random per request, never derived from caller input, so
// concurrent requests cannot collide and the identifier cannot be used as
// an injection vector.
type Table struct {
	Name string

	db *sql.DB
}

// NewTable mints a fresh table identity. The relation itself is only
// created by Materialize; an identity without a relation is still safe to
// dispose.
func NewTable() *Table {
	return &Table{Name: "sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")}
}

// Materialize creates the relation typed from the inferred schema and
// loads every row inside one transaction. The receiver remembers the
// engine handle so Dispose works even after a partial failure.
func (t *Table) Materialize(ctx context.Context, db *sql.DB, inferred schema.Schema, rows rowset.RowSet) error {
	t.db = db

	columnDefs := make([]string, 0, len(inferred.Columns))
	for _, column := range inferred.Columns {
		columnDefs = append(columnDefs, quoteIdent(column)+" "+engineType(inferred.TypeOf(column)))
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.Name), strings.Join(columnDefs, ", "))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create temporary table: %w", err)
	}

	placeholders := make([]string, len(inferred.Columns))
	quotedColumns := make([]string, len(inferred.Columns))
	for i, column := range inferred.Columns {
		placeholders[i] = "?"
		quotedColumns[i] = quoteIdent(column)
	}
	insertStmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "),
	)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		args := make([]any, len(inferred.Columns))
		for i, column := range inferred.Columns {
			args[i] = bindValue(inferred.TypeOf(column), row[column])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("load row into temporary table: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit row load: %w", err)
	}
	return nil
}

// Dispose drops the relation unconditionally. It is a no-op when the
// relation was never created, so callers defer it around the whole
// request regardless of which stage failed.
func (t *Table) Dispose(ctx context.Context) error {
	if t.db == nil {
		return nil
	}
	if _, err := t.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(t.Name)); err != nil {
		return fmt.Errorf("drop temporary table: %w", err)
	}
	return nil
}

func engineType(columnType schema.Type) string {
	switch columnType {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeDecimal:
		return "DOUBLE"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDatetime:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// bindValue converts a cell into a driver argument. Datetime columns get
// their recognized string forms parsed here; everything else is handed to
// the engine in its natural representation and cast by the engine.
func bindValue(columnType schema.Type, value rowset.Value) any {
	if value.IsNull() {
		return nil
	}
	switch value.Kind() {
	case rowset.KindBool:
		return value.AsBool()
	case rowset.KindNumber:
		num := value.AsNumber()
		if columnType == schema.TypeInteger && num == math.Trunc(num) {
			return int64(num)
		}
		return num
	case rowset.KindTime:
		return value.AsTime()
	default:
		if columnType == schema.TypeDatetime {
			if parsed, ok := schema.ParseDate(value.AsString()); ok {
				return parsed
			}
		}
		return value.AsString()
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
