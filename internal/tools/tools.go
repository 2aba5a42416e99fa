// Package tools defines the registry of functions the model may invoke.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Tool represents a callable tool. Handlers execute synchronously and
// return text for the model; they may return an error, but the error
// never crosses the dispatch boundary; Dispatch converts it to a
// textual result so the conversation can continue.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds available tools. Registration happens once at startup;
// afterwards the registry is read-only and safe for concurrent dispatch.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry. Names are unique; registering a
// duplicate is a programming error and is rejected.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// MustRegister registers a tool and panics on error. Intended for the
// startup wiring path where a duplicate name is a bug.
func (r *Registry) MustRegister(t *Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name, or nil if unknown.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
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

// Specs returns all tools as OpenAI-style function specs, in stable
// name order so prompts don't churn between calls.
func (r *Registry) Specs() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]map[string]any, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		specs = append(specs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}
	return specs
}

// Dispatch runs a tool by name with JSON-encoded arguments and returns
// the textual result. Dispatch never returns an error: unknown names,
// malformed arguments, handler errors, and handler panics all come back
// as descriptive text the model can recover from in conversation.
func (r *Registry) Dispatch(ctx context.Context, name, argsJSON string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", name, "panic", rec)
			result = fmt.Sprintf("Error: the %s tool failed unexpectedly.", name)
		}
	}()

	tool := r.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error: there is no tool named %q. Answer from what you already know instead.", name)
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
		}
	}

	text, err := tool.Handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool returned error", "tool", name, "error", err)
		return fmt.Sprintf("Error from %s: %v", name, err)
	}
	return text
}
