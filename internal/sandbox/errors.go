package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind is the stable failure taxonomy the sandbox exposes to
// callers. Raw engine errors never cross the sandbox boundary.
type ErrorKind string

const (
	ErrValidation     ErrorKind = "ValidationError"
	ErrSyntax         ErrorKind = "SyntaxError"
	ErrColumnNotFound ErrorKind = "ColumnNotFoundError"
	ErrTableNotFound  ErrorKind = "TableNotFoundError"
	ErrTimeout        ErrorKind = "TimeoutError"
	ErrUnknown        ErrorKind = "UnknownError"
)

// ErrorInfo is the classified, caller-safe form of a failure.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Classify maps a raw engine failure onto the error taxonomy by matching
// recognizable fragments of the engine's message. Unmatched failures
// become UnknownError with the original message preserved. The logical
// table name is included in table-not-found hints because callers never
// see the physical identifier.
func Classify(err error, logicalTable string) ErrorInfo {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{Kind: ErrTimeout, Message: "query execution exceeded the configured deadline"}
	}
	message := err.Error()
	lowered := strings.ToLower(message)

	switch {
	case strings.Contains(lowered, "syntax error"),
		strings.Contains(lowered, "unexpected token"),
		strings.Contains(lowered, "parser error"):
		return ErrorInfo{Kind: ErrSyntax, Message: fmt.Sprintf("the query could not be parsed: %s", message)}

	case strings.Contains(lowered, "column not found"),
		strings.Contains(lowered, "referenced column") && strings.Contains(lowered, "not found"),
		strings.Contains(lowered, "column") && strings.Contains(lowered, "does not exist"):
		return ErrorInfo{Kind: ErrColumnNotFound, Message: fmt.Sprintf("the query references a column that does not exist: %s", message)}

	case strings.Contains(lowered, "table not found"),
		strings.Contains(lowered, "table") && strings.Contains(lowered, "does not exist"),
		strings.Contains(lowered, "catalog error"):
		return ErrorInfo{
			Kind:    ErrTableNotFound,
			Message: fmt.Sprintf("the query references an unknown table; use the table name %q: %s", logicalTable, message),
		}
	}

	return ErrorInfo{Kind: ErrUnknown, Message: message}
}

// timeoutInfo names the configured duration so callers can tell a short
// deadline apart from a genuinely slow query.
func timeoutInfo(timeout time.Duration) ErrorInfo {
	return ErrorInfo{
		Kind:    ErrTimeout,
		Message: fmt.Sprintf("query did not complete within %s", timeout),
	}
}
