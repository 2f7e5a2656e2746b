package tool

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/browseragent/agentcore"
)

// Descriptor is the provider-agnostic shape of a tool handed to a
// ModelClient for advertising to the model; DiscoverModelTools converts it
// into agentcore.ToolDescriptor, which modelclient/anthropic in turn
// converts into the SDK's tool parameter, keeping the SDK dependency out of
// this package.
type Descriptor struct {
	Name        string
	Description string
	InputSchema ToolSchema
}

// Registry is the ToolRegistry: a concurrency-safe set of named tools
// supporting register, unregister, discovery, and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Returns ErrNilTool, ErrEmptyName, the schema's
// validation error, or ErrDuplicateName if a tool with the same name is
// already registered. Register emits no event; the Registry has no sink.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return ErrNilTool
	}
	name := t.Name()
	if name == "" {
		return ErrEmptyName
	}
	schema := t.InputSchema()
	if err := schema.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return ErrDuplicateName
	}
	r.tools[name] = t
	return nil
}

// RegisterAll registers every tool, stopping at the first failure.
func (r *Registry) RegisterAll(tools []Tool) error {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes a tool by name. Returns ErrUnknownTool if absent.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return ErrUnknownTool
	}
	delete(r.tools, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns every registered tool name, in no particular order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// DiscoverQuery filters the discover(query?) operation (spec.md:114).
// An empty NamePattern matches every registered tool.
type DiscoverQuery struct {
	NamePattern string
}

// DiscoverResult is the {tools[], total} shape discover() returns.
type DiscoverResult struct {
	Tools []Descriptor
	Total int
}

// Discover implements discover(query?) → {tools[], total} (spec.md:114):
// tools whose name matches query.NamePattern as a regular expression, or
// every registered tool when NamePattern is empty.
func (r *Registry) Discover(query DiscoverQuery) (DiscoverResult, error) {
	var re *regexp.Regexp
	if query.NamePattern != "" {
		compiled, err := regexp.Compile(query.NamePattern)
		if err != nil {
			return DiscoverResult{}, fmt.Errorf("invalid namePattern: %w", err)
		}
		re = compiled
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.tools))
	for name, t := range r.tools {
		if re != nil && !re.MatchString(name) {
			continue
		}
		descs = append(descs, describe(t))
	}
	return DiscoverResult{Tools: descs, Total: len(descs)}, nil
}

// discoverByNames returns Descriptors for the named tools, or for every
// registered tool when names is empty. Unknown names are silently
// skipped, since a TurnContext's ToolsConfig may list tools from a
// previous session that were never re-registered. This backs
// DiscoverModelTools's per-turn tool-selection, a distinct concern from the
// public discover(query?) operation above.
func (r *Registry) discoverByNames(names ...string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		descs := make([]Descriptor, 0, len(r.tools))
		for _, t := range r.tools {
			descs = append(descs, describe(t))
		}
		return descs
	}

	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			descs = append(descs, describe(t))
		}
	}
	return descs
}

func describe(t Tool) Descriptor {
	return Descriptor{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()}
}

// DiscoverModelTools is Discover's counterpart for TurnManager: it returns
// the root package's provider-agnostic agentcore.ToolDescriptor shape
// directly, since TurnManager lives in the root package and cannot import
// this one (this package already imports agentcore for ToolError/EventMsg,
// so the dependency can only run this direction).
func (r *Registry) DiscoverModelTools(names ...string) []agentcore.ToolDescriptor {
	descs := r.discoverByNames(names...)
	out := make([]agentcore.ToolDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, agentcore.ToolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schemaToMap(d.InputSchema),
		})
	}
	return out
}

// schemaToMap renders a ToolSchema as the plain JSON-schema map a
// ModelClient adapter expects, the way modelclient/anthropic's convertTools
// builds an sdk.ToolParam's InputSchema from it.
func schemaToMap(s ToolSchema) map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = propertyToMap(p)
	}
	m := map[string]any{
		"type":       s.Type,
		"properties": props,
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	return m
}

func propertyToMap(p PropertyDef) map[string]any {
	m := map[string]any{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	if p.Items != nil {
		m["items"] = propertyToMap(*p.Items)
	}
	if len(p.Properties) > 0 {
		nested := make(map[string]any, len(p.Properties))
		for name, np := range p.Properties {
			nested[name] = propertyToMap(np)
		}
		m["properties"] = nested
	}
	if p.AdditionalProperties != nil {
		m["additionalProperties"] = *p.AdditionalProperties
	}
	return m
}
