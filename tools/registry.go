// Package tools provides tool management and dispatch.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Panic recovery and error normalization hidden behind Execute
// - Registration happens once, when every handler already exists

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/llm"
)

var (
	// ErrUnknownTool is reported when a name has no registered handler.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool is returned when two tools share a name.
	ErrDuplicateTool = errors.New("tool already registered")
)

// Registry maps tool names to handlers.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry builds a registry from a complete set of tools.
// Returns ErrDuplicateTool if two tools share a name.
func NewRegistry(logger *zap.Logger, tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		logger: logging.OrNop(logger),
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools, sorted by name.
func (r *Registry) List() []Metadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]Metadata, 0, len(names))
	for _, name := range names {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Execute dispatches a call by name. It never returns a Go error: unknown
// names, rejected arguments, handler errors and handler panics all come back
// as a failed Result.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (result Result) {
	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("unknown tool requested", zap.String("tool", name))
		return FailureResult(name, fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", zap.String("tool", name), zap.Any("panic", p))
			result = FailureResultf(name, "tool %s failed unexpectedly: %v", name, p)
		}
	}()

	if err := tool.Validate(args); err != nil {
		r.logger.Debug("tool arguments rejected", zap.String("tool", name), zap.Error(err))
		return FailureResult(name, err)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		r.logger.Debug("tool failed", zap.String("tool", name), zap.Error(err))
		return FailureResult(name, err)
	}
	if result.Operation == "" {
		result.Operation = name
	}
	r.logger.Debug("tool executed", zap.String("tool", name), zap.Bool("success", result.Success))
	return result
}

// Description returns a formatted description of all tools for LLM prompts.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			line := fmt.Sprintf("  - %s (%s): %s [%s]", p.Name, p.Type, p.Description, required)
			if len(p.Enum) > 0 {
				line += fmt.Sprintf(" one of: %s", strings.Join(p.Enum, ", "))
			}
			params = append(params, line)
		}

		paramStr := "  (none)"
		if len(params) > 0 {
			paramStr = strings.Join(params, "\n")
		}
		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, paramStr))
	}

	return strings.Join(descriptions, "\n\n")
}

// Definitions returns JSON-schema tool definitions, sorted by name.
func (r *Registry) Definitions() []llm.ToolDefinition {
	metas := r.List()
	defs := make([]llm.ToolDefinition, 0, len(metas))
	for _, meta := range metas {
		properties := make(map[string]any, len(meta.Parameters))
		required := []string{}
		for _, p := range meta.Parameters {
			prop := map[string]any{"type": p.Type, "description": p.Description}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return defs
}
