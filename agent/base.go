// Package agent implements the agent base dispatcher (spec §4.3) and the
// concrete agent kinds (spec §4.6).
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// Direction labels which side of a dispatch an Observer is told about.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Observer is an optional ambient hook for dispatch telemetry (spec's
// ambient observability concerns, not part of the message protocol
// itself). A Base with no Observer set behaves exactly as before.
type Observer interface {
	ObserveDispatch(agentName string, dir Direction, msgType message.Type, duration time.Duration, err error)
}

// Hooks is the variable behavior concrete agent kinds implement. The base
// guarantees the context exists and the inbound message has already been
// traced before a hook runs.
type Hooks interface {
	ProcessRequest(msg message.Message, c *ctx.Context)
	ProcessResponse(msg message.Message, c *ctx.Context)
	ProcessEvent(ev transport.Event)
	ProcessError(err transport.Error)
}

// Error is the agent package's error type.
type Error struct {
	Agent     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[agent:%s:%s] %s: %v", e.Agent, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[agent:%s:%s] %s", e.Agent, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Base owns a Transport, registers itself in the Registry on construction,
// and wires its transport's four callbacks to a Hooks implementation
// (spec §4.3). Concrete kinds embed *Base and supply Hooks by passing
// themselves to SetHooks.
type Base struct {
	name        string
	description string

	tr       transport.Transport
	reg      *registry.Registry
	store    *ctx.Store
	hooks    Hooks
	observer Observer

	// currentContextName is the context_name of the inbound message
	// currently being dispatched. The concurrency model serializes
	// callbacks per agent (spec §5), so a single field is safe without
	// extra locking: at most one hook invocation reads or writes it at a
	// time.
	currentContextName string
}

// NewBase constructs a Base and registers it in reg. It does not start
// the transport — call StartAgent once the concrete kind has installed
// its Hooks via SetHooks.
func NewBase(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store) (*Base, error) {
	b := &Base{name: name, description: description, tr: tr, reg: reg, store: store}
	if err := reg.RegisterAgent(b); err != nil {
		return nil, &Error{Agent: name, Operation: "NewBase", Message: "registration failed", Err: err}
	}
	return b, nil
}

// SetHooks installs the concrete agent kind as this Base's hook sink and
// wires the transport callbacks. Must be called once, before StartAgent.
func (b *Base) SetHooks(h Hooks) {
	b.hooks = h
	b.tr.SetCallbacks(transport.Callbacks{
		OnRequest:  b.handleRequest,
		OnResponse: b.handleResponse,
		OnEvent:    b.handleEvent,
		OnError:    b.handleError,
	})
}

// SetObserver installs an optional dispatch telemetry sink. Safe to call
// before or after SetHooks, but not concurrently with dispatch.
func (b *Base) SetObserver(o Observer) { b.observer = o }

// StartAgent starts the underlying transport.
func (b *Base) StartAgent(goCtx context.Context) error {
	if err := b.tr.Start(goCtx); err != nil {
		return &Error{Agent: b.name, Operation: "StartAgent", Message: "transport start failed", Err: err}
	}
	return nil
}

// StopAgent stops the transport (draining in-flight dispatch) and
// unregisters from the registry.
func (b *Base) StopAgent(goCtx context.Context) error {
	if err := b.tr.Stop(goCtx); err != nil {
		return &Error{Agent: b.name, Operation: "StopAgent", Message: "transport stop failed", Err: err}
	}
	if err := b.reg.UnregisterAgent(b.name); err != nil {
		return &Error{Agent: b.name, Operation: "StopAgent", Message: "unregister failed", Err: err}
	}
	return nil
}

// Name implements registry.AgentHandle.
func (b *Base) Name() string { return b.name }

// Description implements registry.AgentHandle.
func (b *Base) Description() string { return b.description }

// Contexts exposes the context store so concrete kinds can look up
// contexts by name without threading it through every call.
func (b *Base) Contexts() *ctx.Store { return b.store }

// Registry exposes the registry so concrete kinds can discover peers
// (used by PhasedCoordinator's planning step).
func (b *Base) Registry() *registry.Registry { return b.reg }

// handleRequest and handleResponse do not re-trace msg: SendRequest and
// SendResponse already appended it to the trace once, at send time, on
// the sender's side of the same shared Context.
func (b *Base) handleRequest(msg message.Message) {
	start := time.Now()
	c := b.store.GetOrCreate(msg.ContextName())
	c.AddParticipant(b.name)
	b.currentContextName = msg.ContextName()
	if b.hooks != nil {
		b.hooks.ProcessRequest(msg, c)
	}
	b.observe(DirectionInbound, msg.Type(), start, nil)
}

func (b *Base) handleResponse(msg message.Message) {
	start := time.Now()
	c := b.store.GetOrCreate(msg.ContextName())
	c.AddParticipant(b.name)
	b.currentContextName = msg.ContextName()
	if b.hooks != nil {
		b.hooks.ProcessResponse(msg, c)
	}
	b.observe(DirectionInbound, msg.Type(), start, nil)
}

func (b *Base) observe(dir Direction, msgType message.Type, start time.Time, err error) {
	if b.observer == nil {
		return
	}
	b.observer.ObserveDispatch(b.name, dir, msgType, time.Since(start), err)
}

func (b *Base) handleEvent(ev transport.Event) {
	if b.hooks != nil {
		b.hooks.ProcessEvent(ev)
	}
}

func (b *Base) handleError(err transport.Error) {
	if b.hooks != nil {
		b.hooks.ProcessError(err)
	}
}

// NewOutbound builds a Message whose context_name defaults to the
// context_name of the inbound message currently being dispatched (spec
// §4.3's context propagation guarantee); pass message.WithContextName in
// opts to override.
func (b *Base) NewOutbound(payload string, msgType message.Type, opts ...message.Option) message.Message {
	all := append([]message.Option{message.WithContextName(b.currentContextName)}, opts...)
	return message.New(payload, msgType, all...)
}

// SendRequest stamps msg's sender (if unset) to this agent's name, traces
// it, records this agent as a participant, and sends it to dest as a
// REQUEST frame. dest is a transport address, which may differ from any
// agent's registered name, so it is not itself recorded as a participant.
func (b *Base) SendRequest(msg message.Message, dest string) error {
	start := time.Now()
	out := msg.WithSenderSet(b.name)
	c := b.store.GetOrCreate(out.ContextName())
	c.AppendTrace(out)
	c.AddParticipant(b.name)
	err := b.tr.SendRequest(out, dest)
	b.observe(DirectionOutbound, out.Type(), start, err)
	if err != nil {
		return &Error{Agent: b.name, Operation: "SendRequest", Message: fmt.Sprintf("send to %q failed", dest), Err: err}
	}
	return nil
}

// SendResponse stamps msg's sender (if unset) to this agent's name,
// traces it, records this agent as a participant, and sends it to dest as
// a RESPONSE frame.
func (b *Base) SendResponse(msg message.Message, dest string) error {
	start := time.Now()
	out := msg.WithSenderSet(b.name)
	c := b.store.GetOrCreate(out.ContextName())
	c.AppendTrace(out)
	c.AddParticipant(b.name)
	err := b.tr.SendResponse(out, dest)
	b.observe(DirectionOutbound, out.Type(), start, err)
	if err != nil {
		return &Error{Agent: b.name, Operation: "SendResponse", Message: fmt.Sprintf("send to %q failed", dest), Err: err}
	}
	return nil
}
