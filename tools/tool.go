// Package tools provides the tool system the agent dispatches to.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Argument decoding and validation hidden in typed argument structs
// - Registry implementation details hidden from consumers
// - Every failure mode is folded into the uniform Result shape
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parameter defines a parameter schema for a tool.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Metadata describes what a tool does and how to use it.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Result is the uniform outcome of a tool call, whether it succeeded,
// failed validation, returned an error, or panicked.
type Result struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SuccessResult creates a successful tool result.
func SuccessResult(operation string, data any) Result {
	return Result{Success: true, Operation: operation, Data: data}
}

// FailureResult creates a failed tool result.
func FailureResult(operation string, err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{Success: false, Operation: operation, Error: msg}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(operation, format string, args ...any) Result {
	return Result{Success: false, Operation: operation, Error: fmt.Sprintf(format, args...)}
}

// JSON renders the result for the model transcript.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"operation":%q,"error":"unencodable result"}`, r.Operation)
	}
	return string(data)
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() Metadata

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (Result, error)

	// Validate validates arguments before execution.
	Validate(args json.RawMessage) error
}

// ArgumentError reports arguments rejected at the dispatch boundary.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// funcTool adapts a typed handler to the Tool interface. A is the tool's
// argument struct; check rejects malformed values before run sees them.
type funcTool[A any] struct {
	meta  Metadata
	check func(*A) error
	run   func(context.Context, A) (any, error)
}

func newTool[A any](meta Metadata, check func(*A) error, run func(context.Context, A) (any, error)) Tool {
	return &funcTool[A]{meta: meta, check: check, run: run}
}

func (t *funcTool[A]) Metadata() Metadata {
	return t.meta
}

func (t *funcTool[A]) decode(raw json.RawMessage) (A, error) {
	var args A
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return args, &ArgumentError{Tool: t.meta.Name, Reason: err.Error()}
	}
	if t.check != nil {
		if err := t.check(&args); err != nil {
			return args, &ArgumentError{Tool: t.meta.Name, Reason: err.Error()}
		}
	}
	return args, nil
}

// Validate decodes and checks the arguments.
func (t *funcTool[A]) Validate(raw json.RawMessage) error {
	_, err := t.decode(raw)
	return err
}

// Execute decodes the arguments and runs the handler.
func (t *funcTool[A]) Execute(ctx context.Context, raw json.RawMessage) (Result, error) {
	args, err := t.decode(raw)
	if err != nil {
		return FailureResult(t.meta.Name, err), nil
	}
	data, err := t.run(ctx, args)
	if err != nil {
		return Result{}, err
	}
	return SuccessResult(t.meta.Name, data), nil
}

// Offset is a character offset argument. Models send offsets as JSON
// numbers, integral floats or numeric strings; all three decode.
type Offset struct {
	Value int
	Set   bool
}

// UnmarshalJSON accepts 5, 5.0 and "5".
func (o *Offset) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	text = strings.Trim(text, `"`)
	if n, err := strconv.Atoi(text); err == nil {
		o.Value, o.Set = n, true
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int(f)) {
		return fmt.Errorf("offset must be an integer, got %s", string(data))
	}
	o.Value, o.Set = int(f), true
	return nil
}

func requireOffset(name string, o Offset) error {
	if !o.Set {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// IsArgumentError reports whether err is an ArgumentError.
func IsArgumentError(err error) bool {
	var a *ArgumentError
	return errors.As(err, &a)
}
