package queryboxctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"

	"github.com/querybox/querybox/internal/sandbox"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("queryboxctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "QueryBox API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	rowsFile := fs.String("rows-file", "", "Path to a JSON array of row objects")
	csvFile := fs.String("csv-file", "", "Path to a CSV document with a header row")
	tableName := fs.String("table", "", "Logical table name the query refers to")
	timeoutMs := fs.Int("timeout-ms", 0, "Query timeout in milliseconds (0 uses the server default)")
	rawJSON := fs.Bool("json", false, "Print the raw JSON response instead of a table")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	session := &session{
		client:  client,
		baseURL: strings.TrimRight(*baseURL, "/"),
		apiKey:  strings.TrimSpace(*apiKey),
		stdout:  stdout,
		stderr:  stderr,
		rawJSON: *rawJSON,
	}

	command := strings.TrimSpace(fs.Arg(0))
	switch command {
	case "health":
		return session.get(ctx, "/v1/health")
	case "ready":
		return session.get(ctx, "/v1/ready")
	case "query":
		queryText := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if queryText == "" {
			_, _ = fmt.Fprintln(stderr, "query command requires SQL text")
			return 2
		}
		payload, err := buildRowPayload(*rowsFile, *csvFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		return session.query(ctx, queryText, *tableName, *timeoutMs, payload)
	case "schema":
		payload, err := buildRowPayload(*rowsFile, *csvFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		return session.post(ctx, "/v1/schema", payload)
	case "examples":
		payload, err := buildRowPayload(*rowsFile, *csvFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		if *tableName != "" {
			payload["table_name"] = *tableName
		}
		return session.post(ctx, "/v1/examples", payload)
	case "repl":
		payload, err := buildRowPayload(*rowsFile, *csvFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		return session.repl(ctx, *tableName, *timeoutMs, payload)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

type session struct {
	client  *http.Client
	baseURL string
	apiKey  string
	stdout  io.Writer
	stderr  io.Writer
	rawJSON bool
}

func (s *session) get(ctx context.Context, path string) int {
	code, body, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(s.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	s.printJSON(body)
	return 0
}

func (s *session) post(ctx context.Context, path string, payload map[string]any) int {
	encoded, err := json.Marshal(payload)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "encode request: %v\n", err)
		return 1
	}
	code, body, err := s.do(ctx, http.MethodPost, path, encoded)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(s.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	s.printJSON(body)
	return 0
}

func (s *session) query(ctx context.Context, queryText, tableName string, timeoutMs int, payload map[string]any) int {
	result, code := s.runQuery(ctx, queryText, tableName, timeoutMs, payload)
	if code != 0 {
		return code
	}
	if !result.Success {
		printResultError(s.stderr, result)
		return 1
	}
	renderResult(s.stdout, result)
	return 0
}

func (s *session) runQuery(ctx context.Context, queryText, tableName string, timeoutMs int, payload map[string]any) (sandbox.Result, int) {
	request := map[string]any{"query": queryText}
	for key, value := range payload {
		request[key] = value
	}
	if tableName != "" {
		request["table_name"] = tableName
	}
	if timeoutMs > 0 {
		request["timeout_ms"] = timeoutMs
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "encode request: %v\n", err)
		return sandbox.Result{}, 1
	}
	code, body, err := s.do(ctx, http.MethodPost, "/v1/query", encoded)
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "request failed: %v\n", err)
		return sandbox.Result{}, 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(s.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return sandbox.Result{}, 1
	}

	if s.rawJSON {
		s.printJSON(body)
		return sandbox.Result{Success: true}, 0
	}

	var result sandbox.Result
	if err := json.Unmarshal(body, &result); err != nil {
		_, _ = fmt.Fprintf(s.stderr, "decode response: %v\n", err)
		return sandbox.Result{}, 1
	}
	return result, 0
}

func (s *session) repl(ctx context.Context, tableName string, timeoutMs int, payload map[string]any) int {
	reader, err := readline.NewEx(&readline.Config{
		Prompt:          "querybox> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          s.stdout,
		Stderr:          s.stderr,
	})
	if err != nil {
		_, _ = fmt.Fprintf(s.stderr, "start repl: %v\n", err)
		return 1
	}
	defer reader.Close()

	_, _ = fmt.Fprintln(s.stdout, "Connected to", s.baseURL)
	for {
		line, err := reader.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_, _ = fmt.Fprintf(s.stderr, "read line: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "quit" || trimmed == "exit" || trimmed == `\q` {
			break
		}

		result, code := s.runQuery(ctx, trimmed, tableName, timeoutMs, payload)
		if code != 0 {
			continue
		}
		if !result.Success {
			printResultError(s.stderr, result)
			continue
		}
		if !s.rawJSON {
			renderResult(s.stdout, result)
		}
	}
	return 0
}

func (s *session) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func (s *session) printJSON(raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(s.stdout, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(s.stdout, string(raw))
	}
}

func buildRowPayload(rowsFile, csvFile string) (map[string]any, error) {
	if rowsFile != "" && csvFile != "" {
		return nil, fmt.Errorf("specify only one of -rows-file or -csv-file")
	}
	payload := map[string]any{}
	if rowsFile != "" {
		raw, err := os.ReadFile(rowsFile)
		if err != nil {
			return nil, fmt.Errorf("read rows file: %w", err)
		}
		var rows json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("rows file is not valid JSON: %w", err)
		}
		payload["rows"] = rows
	}
	if csvFile != "" {
		raw, err := os.ReadFile(csvFile)
		if err != nil {
			return nil, fmt.Errorf("read csv file: %w", err)
		}
		payload["data"] = string(raw)
	}
	return payload, nil
}

func renderResult(w io.Writer, result sandbox.Result) {
	if len(result.Data) == 0 {
		_, _ = fmt.Fprintln(w, "(no results)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(result.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)

	rows := make([][]string, 0, len(result.Data))
	for _, row := range result.Data {
		rendered := make([]string, 0, len(result.Columns))
		for _, column := range result.Columns {
			rendered = append(rendered, row[column].String())
		}
		rows = append(rows, rendered)
	}
	table.AppendBulk(rows)
	table.Render()

	if len(rows) == 1 {
		_, _ = fmt.Fprintln(w, "(1 result)")
	} else {
		_, _ = fmt.Fprintf(w, "(%d results)\n", len(rows))
	}
}

func printResultError(w io.Writer, result sandbox.Result) {
	if result.Err == nil {
		_, _ = fmt.Fprintln(w, "query failed")
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %s\n", result.Err.Kind, result.Err.Message)
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return dir + "/queryboxctl_history"
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: queryboxctl [flags] <command> [query]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health     GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready      GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  query      POST /v1/query with the given SQL text")
	_, _ = fmt.Fprintln(w, "  schema     POST /v1/schema for the supplied rows")
	_, _ = fmt.Fprintln(w, "  examples   POST /v1/examples for the supplied rows")
	_, _ = fmt.Fprintln(w, "  repl       interactive query loop against the supplied rows")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
