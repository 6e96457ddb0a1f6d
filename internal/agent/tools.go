package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/attache-hq/attache/internal/llm"
)

// Tool is a capability the agent can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() json.RawMessage

	// Invoke runs the tool. The returned value is JSON-serialized and
	// submitted back to the model as the tool's output.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Catalog holds the set of tools exposed to the model. It is assembled at
// startup and read-only afterwards.
type Catalog struct {
	tools map[string]Tool
}

// NewCatalog creates an empty tool catalog.
func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]Tool)}
}

// Register adds a tool. Registration fails on an empty name, a duplicate
// name, or a schema that is not valid JSON.
func (c *Catalog) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := c.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	if !json.Valid(t.Parameters()) {
		return fmt.Errorf("tool %q has invalid parameter schema", name)
	}
	c.tools[name] = t
	return nil
}

// MustRegister registers tools assembled from static definitions; it panics
// on the programming errors Register guards against.
func (c *Catalog) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := c.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns a tool by name.
func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int { return len(c.tools) }

// Specs returns provider-ready tool definitions, ordered by name.
func (c *Catalog) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(c.tools))
	for _, t := range c.tools {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
