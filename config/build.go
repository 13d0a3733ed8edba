package config

import (
	"context"

	"github.com/mitchellh/mapstructure"

	"github.com/wiseagents/hectormesh/agent"
	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// Connector binds a logical queue name to a Transport. Build takes one of
// these instead of a broker dependency directly, so the same Document
// builds equally against the loopback bus (tests) or a broker-backed
// websocket deployment.
type Connector func(queue string) transport.Transport

// BusConnector adapts an in-process Bus into a Connector, for tests and
// the interactive shell's local bridge.
func BusConnector(bus *transport.Bus) Connector {
	return func(queue string) transport.Transport { return bus.Connect(queue) }
}

// WebSocketConnector adapts a BrokerConfig into a Connector over
// gorilla/websocket, dialing one connection per agent queue.
func WebSocketConnector(broker BrokerConfig) Connector {
	return func(queue string) transport.Transport {
		return transport.NewWebSocketTransport(transport.WebSocketConfig{
			BrokerURL: broker.URL,
			AgentName: queue,
			User:      broker.User,
			Password:  broker.Password,
		})
	}
}

// lifecycle is the subset of agent.Base promoted onto every concrete
// agent kind; Build only needs Start/Stop to manage what it constructs.
type lifecycle interface {
	StartAgent(context.Context) error
	StopAgent(context.Context) error
}

// StartedAgent is a constructed, running agent; Build returns these in
// declaration order so the caller can stop them in reverse.
type StartedAgent struct {
	Name  string
	Agent lifecycle
}

// Builder instantiates the agents named in a Document against a shared
// Registry and Context store, wiring each spec's Params into the matching
// constructor by Kind (spec §9 Design Note: "a single constructor
// dispatches on kind").
type Builder struct {
	Registry  *registry.Registry
	Store     *ctx.Store
	Resources *Resources
}

// NewBuilder returns a Builder over a fresh Registry and a purely
// in-memory Context store.
func NewBuilder(resources *Resources) *Builder {
	reg := registry.New()
	return &Builder{
		Registry:  reg,
		Store:     ctx.NewStore(reg),
		Resources: resources,
	}
}

// NewBuilderWithExternalStore returns a Builder whose Context store
// mirrors each context's message trace and participant set into ext and
// hydrates them from it (see BuildExternalStore), so any other process
// sharing the same backend sees them. Chat histories, queries, tool-call
// bookkeeping and phase state are not written to ext and stay in this
// process.
func NewBuilderWithExternalStore(resources *Resources, ext registry.ExternalStore) *Builder {
	reg := registry.New()
	return &Builder{
		Registry:  reg,
		Store:     ctx.NewStoreWithExternalStore(reg, ext),
		Resources: resources,
	}
}

// Build instantiates and starts every agent in doc.Agents, in declaration
// order, connecting each through conn at its spec.Queue address. It stops
// whatever it already started before returning an error.
func (b *Builder) Build(goCtx context.Context, doc *Document, conn Connector) ([]StartedAgent, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.SetDefaults()

	started := make([]StartedAgent, 0, len(doc.Agents))
	for _, spec := range doc.Agents {
		tr := conn(spec.Queue)
		built, err := b.construct(spec, tr)
		if err != nil {
			b.stopAll(goCtx, started)
			return nil, &Error{Operation: "Build", Message: "agent " + spec.Name, Err: err}
		}
		if err := built.StartAgent(goCtx); err != nil {
			b.stopAll(goCtx, started)
			return nil, &Error{Operation: "Build", Message: "starting agent " + spec.Name, Err: err}
		}
		started = append(started, StartedAgent{Name: spec.Name, Agent: built})
	}
	return started, nil
}

func (b *Builder) stopAll(goCtx context.Context, started []StartedAgent) {
	for i := len(started) - 1; i >= 0; i-- {
		_ = started[i].Agent.StopAgent(goCtx)
	}
}

func (b *Builder) construct(spec AgentSpec, tr transport.Transport) (lifecycle, error) {
	switch spec.Kind {
	case KindLLMOnly:
		var p llmOnlyParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		a, err := agent.NewLLMOnly(spec.Name, spec.Description, tr, b.Registry, b.Store, client)
		return a, err

	case KindLLMWithTools:
		var p llmToolsParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		tools, err := b.Resources.tools(p.Tools)
		if err != nil {
			return nil, err
		}
		a, err := agent.NewLLMWithTools(spec.Name, spec.Description, tr, b.Registry, b.Store, client, tools, p.SystemPrompt)
		return a, err

	case KindVectorRAG:
		var p vectorRAGParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		vstore, err := b.Resources.vectorStore(p.VectorStore)
		if err != nil {
			return nil, err
		}
		topK := p.TopK
		if topK == 0 {
			topK = 3
		}
		a, err := agent.NewVectorRAG(spec.Name, spec.Description, tr, b.Registry, b.Store, client, vstore, p.Collection, topK)
		return a, err

	case KindGraphRAG:
		var p graphRAGParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		gstore, err := b.Resources.graphStore(p.GraphStore)
		if err != nil {
			return nil, err
		}
		topK := p.TopK
		if topK == 0 {
			topK = 3
		}
		a, err := agent.NewGraphRAG(spec.Name, spec.Description, tr, b.Registry, b.Store, client, gstore, topK, p.RetrievalQuery)
		return a, err

	case KindCoVeChallenger:
		var p coveParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		vstore, err := b.Resources.vectorStore(p.VectorStore)
		if err != nil {
			return nil, err
		}
		questions := p.VerificationQuestions
		if questions == 0 {
			questions = 3
		}
		a, err := agent.NewCoVeChallenger(spec.Name, spec.Description, tr, b.Registry, b.Store, client, vstore, p.Collection, questions)
		return a, err

	case KindSequentialCoord:
		var p sequentialParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		a, err := agent.NewSequentialCoordinator(spec.Name, spec.Description, tr, b.Registry, b.Store, p.Agents)
		return a, err

	case KindPhasedCoordinator:
		var p phasedParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		a, err := agent.NewPhasedCoordinator(spec.Name, spec.Description, tr, b.Registry, b.Store, client, p.PhaseNames, p.ConfidenceScoreThreshold, p.MaxIterations)
		return a, err

	case KindCollaborator:
		var p collaboratorParams
		if err := decode(spec.Params, &p); err != nil {
			return nil, err
		}
		client, err := b.Resources.llm(p.LLM)
		if err != nil {
			return nil, err
		}
		a, err := agent.NewCollaborator(spec.Name, spec.Description, tr, b.Registry, b.Store, client)
		return a, err

	case KindPassThroughClient:
		return nil, &Error{Operation: "construct", Message: "pass_through_client is not buildable from YAML: its delivery callback is a Go closure, not a config value; construct it directly (cmd/wiseagentsctl does this for the interactive shell)"}

	default:
		return nil, &Error{Operation: "construct", Message: "unhandled kind " + string(spec.Kind)}
	}
}

func decode(params map[string]any, out any) error {
	if err := mapstructure.Decode(params, out); err != nil {
		return &Error{Operation: "decode", Message: "params decode failed", Err: err}
	}
	return nil
}

type llmOnlyParams struct {
	LLM string `mapstructure:"llm"`
}

type llmToolsParams struct {
	LLM          string `mapstructure:"llm"`
	Tools        string `mapstructure:"tools"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

type vectorRAGParams struct {
	LLM         string `mapstructure:"llm"`
	VectorStore string `mapstructure:"vector_store"`
	Collection  string `mapstructure:"collection"`
	TopK        int    `mapstructure:"top_k"`
}

type graphRAGParams struct {
	LLM            string `mapstructure:"llm"`
	GraphStore     string `mapstructure:"graph_store"`
	TopK           int    `mapstructure:"top_k"`
	RetrievalQuery string `mapstructure:"retrieval_query"`
}

type coveParams struct {
	LLM                   string `mapstructure:"llm"`
	VectorStore           string `mapstructure:"vector_store"`
	Collection            string `mapstructure:"collection"`
	VerificationQuestions int    `mapstructure:"verification_questions"`
}

type sequentialParams struct {
	Agents []string `mapstructure:"agents"`
}

type phasedParams struct {
	LLM                      string   `mapstructure:"llm"`
	PhaseNames               []string `mapstructure:"phase_names"`
	ConfidenceScoreThreshold int      `mapstructure:"confidence_score_threshold"`
	MaxIterations            int      `mapstructure:"max_iterations"`
}

type collaboratorParams struct {
	LLM string `mapstructure:"llm"`
}
