// Package config loads a declarative agent topology from YAML: a broker
// connection plus an ordered list of agent specifications, each a
// discriminated variant keyed by `kind` (spec §6, §9 Design Note).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wiseagents/hectormesh/registry"
)

// Error is the config package's error type.
type Error struct {
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[config:%s] %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[config:%s] %s", e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind names a concrete agent implementation (spec §4.6).
type Kind string

const (
	KindPassThroughClient Kind = "pass_through_client"
	KindLLMOnly           Kind = "llm_only"
	KindLLMWithTools      Kind = "llm_with_tools"
	KindVectorRAG         Kind = "vector_rag"
	KindGraphRAG          Kind = "graph_rag"
	KindCoVeChallenger    Kind = "cove_challenger"
	KindSequentialCoord   Kind = "sequential_coordinator"
	KindPhasedCoordinator Kind = "phased_coordinator"
	KindCollaborator      Kind = "collaborator"
)

// BrokerConfig names the transport endpoint every agent connects through.
// User/Password are expanded from `${VAR}` placeholders against the
// process environment (after loading any .env file found), standing in
// for the original's STOMP_USER/STOMP_PASSWORD broker credentials.
type BrokerConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AgentSpec is one discriminated agent declaration: Kind selects which
// constructor runs, Params carries that kind's own parameters, decoded
// with mapstructure at build time (spec §9 Design Note).
type AgentSpec struct {
	Kind        Kind           `yaml:"kind"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Queue       string         `yaml:"queue"` // transport address; defaults to Name
	Params      map[string]any `yaml:"params"`
}

// ProviderSpec names one LLM client an agent spec's `llm` param can refer
// to by Name. APIKeyEnv names the environment variable BuildLLMResources
// reads the credential from, so no secret ever appears in the YAML file
// itself (spec §6's broker-credential expansion follows the same rule).
type ProviderSpec struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // "openai", "anthropic", or "stub"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// BackendSpec names the shared external store contexts mirror into (spec's
// `use_redis` seam, generalized to registry.BackendKind). An empty or
// absent Kind (or BackendInMemory) keeps contexts purely in-memory.
type BackendSpec struct {
	Kind      registry.BackendKind `yaml:"kind"`
	Endpoints []string             `yaml:"endpoints"`
	Prefix    string               `yaml:"prefix"`
}

// Document is a full topology: one broker, the LLM providers agents can
// reference by name, the shared context backend, and an ordered agent
// list. Agents are instantiated in declaration order (spec §6).
type Document struct {
	Broker    BrokerConfig   `yaml:"broker"`
	Backend   BackendSpec    `yaml:"backend"`
	Providers []ProviderSpec `yaml:"providers"`
	Agents    []AgentSpec    `yaml:"agents"`
}

// Load parses a YAML document from data.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Operation: "Load", Message: "yaml decode failed", Err: err}
	}
	doc.expandBrokerCredentials()
	return &doc, nil
}

// LoadFile reads and parses path, first loading a .env file from the
// current working directory (if present) so broker credential
// placeholders can resolve.
func LoadFile(path string) (*Document, error) {
	_ = godotenv.Load() // no .env file is not an error
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Operation: "LoadFile", Message: fmt.Sprintf("read %q failed", path), Err: err}
	}
	return Load(data)
}

func (d *Document) expandBrokerCredentials() {
	d.Broker.User = os.ExpandEnv(d.Broker.User)
	d.Broker.Password = os.ExpandEnv(d.Broker.Password)
}

// Validate checks structural invariants Build relies on: every agent has
// a non-empty, unique name, and a recognized kind.
func (d *Document) Validate() error {
	switch d.Backend.Kind {
	case "", registry.BackendInMemory, registry.BackendEtcd, registry.BackendConsul:
	default:
		return &Error{Operation: "Validate", Message: fmt.Sprintf("unknown backend kind %q", d.Backend.Kind)}
	}

	seen := make(map[string]bool, len(d.Agents))
	for _, spec := range d.Agents {
		if strings.TrimSpace(spec.Name) == "" {
			return &Error{Operation: "Validate", Message: "agent spec missing name"}
		}
		if seen[spec.Name] {
			return &Error{Operation: "Validate", Message: fmt.Sprintf("duplicate agent name %q", spec.Name)}
		}
		seen[spec.Name] = true
		if !validKind(spec.Kind) {
			return &Error{Operation: "Validate", Message: fmt.Sprintf("agent %q: unknown kind %q", spec.Name, spec.Kind)}
		}
	}
	return nil
}

func validKind(k Kind) bool {
	switch k {
	case KindPassThroughClient, KindLLMOnly, KindLLMWithTools, KindVectorRAG, KindGraphRAG,
		KindCoVeChallenger, KindSequentialCoord, KindPhasedCoordinator, KindCollaborator:
		return true
	default:
		return false
	}
}

// SetDefaults fills in Queue (defaulting to Name) for every agent spec
// that did not name an explicit transport address.
func (d *Document) SetDefaults() {
	for i := range d.Agents {
		if d.Agents[i].Queue == "" {
			d.Agents[i].Queue = d.Agents[i].Name
		}
	}
}
