package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/sqlbridge/internal/value"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Call or scenario failure
	ExitCommandError = 2 // Command error (bad flags, unreadable config or scenario)
)

// CLI error codes that have no wire equivalent.
const (
	ErrCodeConfig   = "config_error"
	ErrCodeScenario = "scenario_error"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Errors that are not an ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics, so JSON output stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// jsonData converts Values into raw JSON so that map order survives encoding.
func jsonData(data any) (any, error) {
	v, ok := data.(value.Value)
	if !ok {
		return data, nil
	}
	raw, err := value.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Success writes a successful result.
// In text mode Values are rendered as tables where they have a tabular shape.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		d, err := jsonData(data)
		if err != nil {
			return err
		}
		return f.encode(CLIResponse{Status: "ok", Data: d})
	}

	if v, ok := data.(value.Value); ok || data == nil {
		return f.renderValue(v)
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an error result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		d, err := jsonData(details)
		if err != nil {
			return err
		}
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: d},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		if v, ok := details.(value.Value); ok {
			raw, err := value.Marshal(v)
			if err == nil {
				fmt.Fprintf(f.Writer, "Details: %s\n", raw)
				return nil
			}
		}
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose output is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// renderValue prints a tabular result or a map list as a table and anything
// else as JSON.
func (f *OutputFormatter) renderValue(v value.Value) error {
	if v == nil {
		fmt.Fprintln(f.Writer, "(no result)")
		return nil
	}
	if header, rows, ok := tableOf(v); ok {
		table := tablewriter.NewWriter(f.Writer)
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
		table.AppendBulk(rows)
		table.Render()
		return nil
	}
	raw, err := value.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(f.Writer, string(raw))
	return nil
}

// tableOf recognizes the two query result shapes.
func tableOf(v value.Value) (header []string, rows [][]string, ok bool) {
	switch r := v.(type) {
	case value.Map:
		cols, hasCols := r.Lookup("columns")
		data, hasRows := r.Lookup("rows")
		if !hasCols || !hasRows || r.Len() != 2 {
			return nil, nil, false
		}
		colList, err := value.AsList(cols)
		if err != nil {
			return nil, nil, false
		}
		rowList, err := value.AsList(data)
		if err != nil {
			return nil, nil, false
		}
		for _, c := range colList {
			header = append(header, cellText(c))
		}
		for _, row := range rowList {
			cells, err := value.AsList(row)
			if err != nil {
				return nil, nil, false
			}
			line := make([]string, len(cells))
			for i, c := range cells {
				line[i] = cellText(c)
			}
			rows = append(rows, line)
		}
		return header, rows, true
	case value.List:
		if len(r) == 0 {
			return nil, nil, false
		}
		first, ok := r[0].(value.Map)
		if !ok {
			return nil, nil, false
		}
		for _, e := range first.Entries() {
			header = append(header, cellText(e.Key))
		}
		for _, item := range r {
			m, ok := item.(value.Map)
			if !ok {
				return nil, nil, false
			}
			line := make([]string, 0, m.Len())
			for _, e := range m.Entries() {
				line = append(line, cellText(e.Value))
			}
			rows = append(rows, line)
		}
		return header, rows, true
	}
	return nil, nil, false
}

func cellText(v value.Value) string {
	switch c := v.(type) {
	case nil, value.Null:
		return "NULL"
	case value.String:
		return string(c)
	default:
		raw, err := value.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
