// Package hectormesh is a framework for cooperating multi-agent applications.
//
// Each agent is an independent, long-lived participant that communicates
// with its peers exclusively by exchanging messages over a broker-mediated
// transport. Agents specialize in capabilities — LLM invocation, tool
// execution, retrieval, verification, coordination — and collaborate on
// user queries within a shared, named context.
//
// # Quick Start
//
// Import the runtime packages directly:
//
//	import (
//	    "github.com/wiseagents/hectormesh/agent"
//	    "github.com/wiseagents/hectormesh/registry"
//	    "github.com/wiseagents/hectormesh/transport"
//	)
//
// Or load a declarative configuration document with the config package to
// instantiate and start a whole agent graph at once.
//
// # Key packages
//
//   - message: the wire value object exchanged between agents
//   - registry: directory of live agents, tools, and contexts
//   - ctx: per-conversation shared state (trace, chat history, coordination)
//   - transport: broker-mediated delivery abstraction
//   - agent: dispatch base and the concrete agent kinds
//   - tool: tool descriptors, schemas, and repositories
//   - llm: the LLM client contract and concrete providers
//   - vectorstore / graphstore: retrieval backends
//   - config: declarative agent-graph loader
//   - cmd/wiseagentsctl: interactive shell
package hectormesh
