// Package sandbox executes untrusted, read-only queries against an
// isolated, request-scoped table. Each request gets its own engine
// instance and a randomly named temporary table; nothing survives the
// request and nothing is shared between concurrent callers.
package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querybox/querybox/internal/observability"
	"github.com/querybox/querybox/internal/rowset"
	"github.com/querybox/querybox/internal/schema"
)

const (
	DefaultTableName = "data"
	DefaultTimeout   = 30 * time.Second
)

// Request is one sandbox invocation: a query, the rows it runs against,
// and optional overrides for the logical table name and the deadline.
type Request struct {
	Query     string
	Rows      rowset.RowSet
	TableName string
	Timeout   time.Duration
}

// Result is always returned, never thrown: every failure mode is folded
// into Success=false plus a classified ErrorInfo. Query carries the
// rewritten statement for diagnostics.
type Result struct {
	Success          bool          `json:"success"`
	Data             rowset.RowSet `json:"data"`
	Columns          []string      `json:"columns"`
	RowsAffected     int           `json:"rows_affected"`
	ExecutionSeconds float64       `json:"execution_time_seconds"`
	Err              *ErrorInfo    `json:"error,omitempty"`
	Query            string        `json:"query,omitempty"`
}

// OpenEngineFunc supplies the backing engine for one request. The default
// opens an in-memory DuckDB instance scoped to the call.
type OpenEngineFunc func(ctx context.Context) (*sql.DB, error)

// Service is stateless: all per-request resources are created inside
// Execute and torn down before it returns, so a single value is safe for
// any number of concurrent callers.
type Service struct {
	Logger         *slog.Logger
	DefaultTimeout time.Duration
	OpenEngine     OpenEngineFunc
}

// Execute runs the full pipeline: validate, materialize, rewrite, execute
// under a deadline, classify. Teardown of the temporary table runs on
// every path once materialization has been attempted.
func (s *Service) Execute(ctx context.Context, req Request) Result {
	logicalTable := req.TableName
	if logicalTable == "" {
		logicalTable = DefaultTableName
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := Validate(req.Query); err != nil {
		s.log(ctx, slog.LevelInfo, "query rejected by policy", slog.String("reason", err.Error()))
		return s.finish(Result{
			Data:    rowset.RowSet{},
			Columns: []string{},
			Err:     &ErrorInfo{Kind: ErrValidation, Message: err.Error()},
		}, time.Time{})
	}

	// The table identity exists even when the row set is empty; executing
	// against a schema-less empty relation is defined as a no-op success.
	table := NewTable()
	if len(req.Rows) == 0 {
		return s.finish(Result{
			Success: true,
			Data:    rowset.RowSet{},
			Columns: []string{},
		}, time.Time{})
	}

	db, err := s.openEngine(ctx)
	if err != nil {
		classified := Classify(err, logicalTable)
		s.log(ctx, slog.LevelError, "engine open failed", slog.String("error", err.Error()))
		return s.finish(Result{Data: rowset.RowSet{}, Columns: []string{}, Err: &classified}, time.Time{})
	}
	defer func() { _ = db.Close() }()

	// Teardown must survive a fired deadline on the request context.
	disposeCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := table.Dispose(disposeCtx); err != nil {
			s.log(ctx, slog.LevelWarn, "temporary table teardown failed",
				slog.String("table", table.Name), slog.String("error", err.Error()))
		}
	}()

	inferred := schema.Infer(req.Rows)
	if err := table.Materialize(ctx, db, inferred, req.Rows); err != nil {
		classified := Classify(err, logicalTable)
		s.log(ctx, slog.LevelWarn, "row materialization failed", slog.String("error", err.Error()))
		return s.finish(Result{Data: rowset.RowSet{}, Columns: []string{}, Err: &classified}, time.Time{})
	}

	rewritten := Rewrite(req.Query, logicalTable, table.Name)
	start := time.Now()
	result := s.executeBounded(ctx, db, rewritten, logicalTable, timeout)
	result.Query = rewritten
	return s.finish(result, start)
}

type engineResult struct {
	data    rowset.RowSet
	columns []string
	err     error
}

// executeBounded races the engine call against the deadline. On timeout
// the caller stops waiting immediately; the in-flight call keeps its own
// buffered channel and its own engine instance, so its late result is
// discarded and can never be attributed to another request.
func (s *Service) executeBounded(ctx context.Context, db *sql.DB, queryText, logicalTable string, timeout time.Duration) Result {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan engineResult, 1)
	go func() {
		data, columns, err := runQuery(execCtx, db, queryText)
		done <- engineResult{data: data, columns: columns, err: err}
	}()

	select {
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			observability.IncrementSandboxTimeout()
			info := timeoutInfo(timeout)
			return Result{Data: rowset.RowSet{}, Columns: []string{}, Err: &info}
		}
		classified := Classify(execCtx.Err(), logicalTable)
		return Result{Data: rowset.RowSet{}, Columns: []string{}, Err: &classified}
	case res := <-done:
		if res.err != nil {
			classified := Classify(res.err, logicalTable)
			return Result{Data: rowset.RowSet{}, Columns: []string{}, Err: &classified}
		}
		return Result{
			Success:      true,
			Data:         res.data,
			Columns:      res.columns,
			RowsAffected: len(res.data),
		}
	}
}

func runQuery(ctx context.Context, db *sql.DB, queryText string) (rowset.RowSet, []string, error) {
	rows, err := db.QueryContext(ctx, queryText)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := rowset.RowSet{}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, err
		}
		row := rowset.Row{}
		for i, column := range columns {
			row[column] = rowset.FromAny(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return data, columns, nil
}

// OpenInMemoryEngine opens a fresh in-memory DuckDB instance.
func OpenInMemoryEngine(_ context.Context) (*sql.DB, error) {
	return sql.Open("duckdb", "")
}

func (s *Service) openEngine(ctx context.Context) (*sql.DB, error) {
	if s.OpenEngine != nil {
		return s.OpenEngine(ctx)
	}
	return OpenInMemoryEngine(ctx)
}

// finish stamps the execution time and records outcome metrics.
func (s *Service) finish(result Result, start time.Time) Result {
	if !start.IsZero() {
		result.ExecutionSeconds = time.Since(start).Seconds()
	}
	outcome := "success"
	if result.Err != nil {
		outcome = string(result.Err.Kind)
	}
	observability.ObserveSandboxQuery(outcome, result.RowsAffected, time.Duration(result.ExecutionSeconds*float64(time.Second)))
	return result
}

func (s *Service) log(ctx context.Context, level slog.Level, message string, attrs ...slog.Attr) {
	if s.Logger == nil {
		return
	}
	s.Logger.LogAttrs(ctx, level, message, attrs...)
}
