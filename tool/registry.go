package tool

import (
	"fmt"

	"github.com/wiseagents/hectormesh/registry"
)

// RegistryError follows the teacher's error idiom (tools/registry.go's
// ToolRegistryError) with {Operation,Message,Err}; it has no Component
// field.
type RegistryError struct {
	Operation string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[tool:%s] %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[tool:%s] %s", e.Operation, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// Repository sources a set of tool descriptors, e.g. a static local list
// or an MCP server's tool listing.
type Repository interface {
	Name() string
	Tools() ([]*Descriptor, error)
}

// Registry is the named directory of tool descriptors (spec §4.2's tool
// register/lookup by name), with conflict-skip-on-discover semantics
// mirroring the teacher's tools/registry.go DiscoverAllTools.
type Registry struct {
	base         *registry.BaseRegistry[*Descriptor]
	repositories []Repository
}

// NewRegistry returns an empty tool Registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[*Descriptor]()}
}

// Register adds d under its own name.
func (r *Registry) Register(d *Descriptor) error {
	if err := r.base.Register(d.Name(), d); err != nil {
		return &RegistryError{Operation: "Register", Message: "register failed", Err: err}
	}
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	return r.base.Get(name)
}

// List returns every registered tool.
func (r *Registry) List() []*Descriptor {
	return r.base.List()
}

// RegisterRepository adds repo to the set this registry discovers from.
func (r *Registry) RegisterRepository(repo Repository) {
	r.repositories = append(r.repositories, repo)
}

// DiscoverAll pulls tools from every registered repository, skipping (and
// collecting as warnings) any name that collides with one already
// registered — the teacher's conflict-skip-with-warning pattern.
func (r *Registry) DiscoverAll() (warnings []string, err error) {
	for _, repo := range r.repositories {
		tools, err := repo.Tools()
		if err != nil {
			return warnings, &RegistryError{Operation: "DiscoverAll", Message: fmt.Sprintf("repository %q failed", repo.Name()), Err: err}
		}
		for _, t := range tools {
			if regErr := r.Register(t); regErr != nil {
				warnings = append(warnings, fmt.Sprintf("repository %q: tool %q already registered, skipped", repo.Name(), t.Name()))
			}
		}
	}
	return warnings, nil
}
