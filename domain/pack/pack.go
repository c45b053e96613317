// Package pack provides types for reusable tool collections.
package pack

import (
	"github.com/provisionkit/provision-go/domain/tool"
)

// Pack is a collection of related provisioning tools.
type Pack struct {
	// Name is the unique identifier for the pack.
	Name string

	// Description explains what the pack provides.
	Description string

	// Version is the semantic version of the pack.
	Version string

	// Tools is the collection of tools in this pack.
	Tools []tool.Tool
}

// ToolNames returns the names of all tools in the pack.
func (p *Pack) ToolNames() []string {
	names := make([]string, len(p.Tools))
	for i, t := range p.Tools {
		names[i] = t.Name()
	}
	return names
}

// GetTool returns a tool by name from the pack.
func (p *Pack) GetTool(name string) (tool.Tool, bool) {
	for _, t := range p.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Registrar accepts tool registrations; satisfied by the dispatcher.
type Registrar interface {
	Register(t tool.Tool) error
}

// RegisterAll registers every tool in the pack with the registrar, in
// declaration order. The first failure aborts the registration.
func (p *Pack) RegisterAll(r Registrar) error {
	for _, t := range p.Tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Builder provides a fluent API for constructing packs.
type Builder struct {
	pack *Pack
}

// NewBuilder creates a new pack builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		pack: &Pack{Name: name},
	}
}

// WithDescription sets the pack description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.pack.Description = desc
	return b
}

// WithVersion sets the pack version.
func (b *Builder) WithVersion(version string) *Builder {
	b.pack.Version = version
	return b
}

// AddTools appends tools to the pack.
func (b *Builder) AddTools(tools ...tool.Tool) *Builder {
	b.pack.Tools = append(b.pack.Tools, tools...)
	return b
}

// Build constructs the pack.
func (b *Builder) Build() *Pack {
	return b.pack
}
