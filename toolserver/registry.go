package toolserver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

// Handler executes one named tool and returns opaque text content.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Registry is an in-process tool gateway: named operations with JSON-schema
// typed inputs, dispatched by name.
type Registry struct {
	mu       sync.RWMutex
	specs    []contractx.ToolSpec
	handlers map[string]Handler
}

var _ contractx.ToolGateway = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool. Re-registering a name replaces its handler but keeps
// catalog order stable.
func (r *Registry) Register(spec contractx.ToolSpec, h Handler) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if h == nil {
		return fmt.Errorf("%w: tool %s has no handler", contractx.ErrValidation, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; !exists {
		r.specs = append(r.specs, spec)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) ListTools(ctx context.Context) ([]contractx.ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]contractx.ToolSpec(nil), r.specs...), nil
}

func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", contractx.ErrToolUnavailable, name)
	}
	return h(ctx, args)
}
