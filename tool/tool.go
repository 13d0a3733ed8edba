// Package tool implements named callable and agent-backed tool
// descriptors, their LLM-consumable schemas, and the registry/repository
// machinery that sources them (spec §3, §4.5).
package tool

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Kind distinguishes a direct callable tool from an agent-backed one.
type Kind int

const (
	// Direct tools execute synchronously via Executor.
	Direct Kind = iota
	// AgentBacked tools are fulfilled by routing a request to the agent
	// named by the tool's Name.
	AgentBacked
)

// Executor runs a direct tool's call, given its raw JSON arguments.
type Executor func(ctx context.Context, argumentsJSON string) (string, error)

// Descriptor is a named tool definition: its description, its
// LLM-consumable argument schema, whether it's direct or agent-backed,
// and (for direct tools) the executor closure.
type Descriptor struct {
	name        string
	description string
	schema      *jsonschema.Schema
	kind        Kind
	executor    Executor
}

// NewDirect builds a direct callable tool descriptor.
func NewDirect(name, description string, schema *jsonschema.Schema, executor Executor) *Descriptor {
	return &Descriptor{name: name, description: description, schema: schema, kind: Direct, executor: executor}
}

// NewAgentBacked builds a tool descriptor fulfilled by the agent named
// name.
func NewAgentBacked(name, description string, schema *jsonschema.Schema) *Descriptor {
	return &Descriptor{name: name, description: description, schema: schema, kind: AgentBacked}
}

func (d *Descriptor) Name() string                 { return d.name }
func (d *Descriptor) Description() string          { return d.description }
func (d *Descriptor) Schema() *jsonschema.Schema    { return d.schema }
func (d *Descriptor) Kind() Kind                    { return d.kind }
func (d *Descriptor) IsAgentBacked() bool           { return d.kind == AgentBacked }

// Execute runs a direct tool's executor. It is an error to call Execute
// on an agent-backed descriptor.
func (d *Descriptor) Execute(ctx context.Context, argumentsJSON string) (string, error) {
	if d.kind != Direct {
		return "", fmt.Errorf("tool %q is agent-backed, not directly callable", d.name)
	}
	if d.executor == nil {
		return "", fmt.Errorf("tool %q has no executor", d.name)
	}
	return d.executor(ctx, argumentsJSON)
}

// SchemaFor reflects a Go value's type into a JSON schema suitable for an
// LLM function-calling API, using invopop/jsonschema the way the teacher
// does for its own tool registrations.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	return reflector.Reflect(v)
}
