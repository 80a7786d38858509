package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrUnknownTool is returned when resolving a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// Handler executes one tool invocation. Handlers must be reentrant-safe:
// the dispatcher may run them concurrently for different sessions.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor is one registered tool: its stable name, the JSON Schema its
// arguments must satisfy, and the handler that fulfills it.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage

	schema  *jsonschema.Schema
	handler Handler
}

// Registry maps tool names to descriptors. It is populated once at server
// construction and read-only afterwards, so lookups need no locking.
type Registry struct {
	tools map[string]*Descriptor
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register adds a tool. The schema is compiled here so that a malformed
// input contract fails at startup, not on the first call.
func (r *Registry) Register(name, description string, schema json.RawMessage, h Handler) error {
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateTool)
	}
	if h == nil {
		return fmt.Errorf("%s: nil handler", name)
	}
	compiled, err := compileSchema(name, schema)
	if err != nil {
		return fmt.Errorf("%s: compile input schema: %w", name, err)
	}
	r.tools[name] = &Descriptor{
		Name:        name,
		Description: description,
		InputSchema: schema,
		schema:      compiled,
		handler:     h,
	}
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the descriptor for name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownTool)
	}
	return d, nil
}

// List returns descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// validate checks args against the compiled input contract.
func (d *Descriptor) validate(args map[string]any) error {
	instance := any(args)
	if args == nil {
		instance = map[string]any{}
	}
	return d.schema.Validate(instance)
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, err
	}
	return c.Compile(resource)
}
