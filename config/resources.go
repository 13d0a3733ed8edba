package config

import (
	"github.com/wiseagents/hectormesh/graphstore"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/tool"
	"github.com/wiseagents/hectormesh/vectorstore"
)

// Resources holds the shared, pre-built dependencies an AgentSpec's
// Params refer to by name: LLM clients, tool registries, and vector/graph
// stores. These carry credentials and live connections, so they are
// assembled by the caller (typically cmd/wiseagentsctl's startup) rather
// than described inline in YAML.
type Resources struct {
	LLMs         map[string]llm.Client
	Tools        map[string]*tool.Registry
	VectorStores map[string]vectorstore.Store
	GraphStores  map[string]graphstore.Store
}

// NewResources returns an empty, ready-to-populate Resources.
func NewResources() *Resources {
	return &Resources{
		LLMs:         make(map[string]llm.Client),
		Tools:        make(map[string]*tool.Registry),
		VectorStores: make(map[string]vectorstore.Store),
		GraphStores:  make(map[string]graphstore.Store),
	}
}

func (r *Resources) llm(name string) (llm.Client, error) {
	c, ok := r.LLMs[name]
	if !ok {
		return nil, &Error{Operation: "Resources.llm", Message: "no llm client named " + name}
	}
	return c, nil
}

func (r *Resources) tools(name string) (*tool.Registry, error) {
	t, ok := r.Tools[name]
	if !ok {
		return nil, &Error{Operation: "Resources.tools", Message: "no tool registry named " + name}
	}
	return t, nil
}

func (r *Resources) vectorStore(name string) (vectorstore.Store, error) {
	v, ok := r.VectorStores[name]
	if !ok {
		return nil, &Error{Operation: "Resources.vectorStore", Message: "no vector store named " + name}
	}
	return v, nil
}

func (r *Resources) graphStore(name string) (graphstore.Store, error) {
	g, ok := r.GraphStores[name]
	if !ok {
		return nil, &Error{Operation: "Resources.graphStore", Message: "no graph store named " + name}
	}
	return g, nil
}
