// Package ctx implements the shared, named conversation state described
// in spec §3/§4.4: message trace, per-chat LLM history, per-chat tool
// bookkeeping, and sequential/phased coordination state.
//
// The package is named ctx rather than context to avoid shadowing the
// standard library's context package in files that need both — the
// teacher's own context/conversation.go shadows stdlib outright, but this
// package's external-store calls need real cancellation contexts, so the
// two cannot share a name here.
package ctx

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
)

// Role is an LLM chat-completion turn's role tag.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one role-tagged turn in a chat's LLM history.
type ChatMessage struct {
	Role       Role
	Content    string
	ToolCallID string // set on Role==RoleTool: which call this answers
	ToolName   string // set on Role==RoleTool
	ToolCalls  []ToolCallRequest
}

// ToolCallRequest is a pending tool invocation the model asked for.
type ToolCallRequest struct {
	ID        string
	ToolName  string
	Arguments string // raw JSON
}

// ToolSchema is the LLM-facing shape of a tool offered to a chat.
type ToolSchema struct {
	Name        string
	Description string
	Schema      any
}

// Context is the per-conversation shared state named by Name.
type Context struct {
	mu sync.RWMutex

	name string

	messageTrace []message.Message

	participants    []string
	participantsSet map[string]struct{}

	chatCompletions map[string][]ChatMessage
	availableTools  map[string][]ToolSchema
	requiredCalls   map[string]map[string]int // chatID -> toolCallID -> outstanding count

	agentsSequence []string

	phaseAssignments map[string][][]string    // chatID -> phases -> agent names
	currentPhase     map[string]int           // chatID -> phase index
	requiredAgents   map[string]map[string]bool // chatID -> agent name -> awaited
	queries          map[string][]string       // chatID -> query history

	// mirror is the optional shared backend (spec's use_redis seam,
	// registry.ExternalStore) that AppendTrace/AddParticipant write
	// through to, so a second process sharing the same backend observes
	// the same trace and participant set. Nil means pure in-memory.
	mirror registry.ExternalStore
}

// New creates an empty Context named name.
func New(name string) *Context {
	return &Context{
		name:             name,
		participantsSet:  make(map[string]struct{}),
		chatCompletions:  make(map[string][]ChatMessage),
		availableTools:   make(map[string][]ToolSchema),
		requiredCalls:    make(map[string]map[string]int),
		phaseAssignments: make(map[string][][]string),
		currentPhase:     make(map[string]int),
		requiredAgents:   make(map[string]map[string]bool),
		queries:          make(map[string][]string),
	}
}

// Name implements registry.ContextHandle.
func (c *Context) Name() string { return c.name }

func (c *Context) traceKey() string        { return c.name + "/trace" }
func (c *Context) participantsKey() string { return c.name + "/participants" }

// SetExternalStore attaches s as c's mirror backend, hydrating c's
// in-memory trace and participant set from whatever s already holds under
// c's keys before returning. Call once, before the context is shared with
// any agent; not safe to call concurrently with AppendTrace/AddParticipant.
func (c *Context) SetExternalStore(goCtx context.Context, s registry.ExternalStore) error {
	rawTrace, err := s.List(goCtx, c.traceKey())
	if err != nil {
		return err
	}
	members, err := s.SetMembers(goCtx, c.participantsKey())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, raw := range rawTrace {
		m, err := message.Deserialize(raw)
		if err != nil {
			slog.Default().Error("hydrate trace: decode failed", "context", c.name, "error", err)
			continue
		}
		c.messageTrace = append(c.messageTrace, m)
	}
	for _, name := range members {
		c.addParticipantLocked(name)
	}
	c.mirror = s
	return nil
}

// AppendTrace appends m to the message trace. Every appended message's
// ContextName must equal c.Name (spec §8 quantified invariant); callers
// are expected to have already stamped m's context via message.WithContext.
//
// Participation is tracked separately, via AddParticipant: a message's
// sender field is a routing address (which may be an alias distinct from
// the agent's own registered name), so it is not treated as a
// participant on its own.
func (c *Context) AppendTrace(m message.Message) {
	c.mu.Lock()
	c.messageTrace = append(c.messageTrace, m)
	mirror := c.mirror
	c.mu.Unlock()

	if mirror == nil {
		return
	}
	body, err := message.Serialize(m)
	if err != nil {
		slog.Default().Error("mirror trace: encode failed", "context", c.name, "error", err)
		return
	}
	if err := mirror.ListAppend(context.Background(), c.traceKey(), body); err != nil {
		slog.Default().Error("mirror trace failed", "context", c.name, "error", err)
	}
}

// AddParticipant records name as a participant if not already present.
// Membership is monotonic until the context is removed.
func (c *Context) AddParticipant(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	_, existed := c.participantsSet[name]
	c.addParticipantLocked(name)
	mirror := c.mirror
	c.mu.Unlock()

	if existed || mirror == nil {
		return
	}
	if err := mirror.SetAdd(context.Background(), c.participantsKey(), name); err != nil {
		slog.Default().Error("mirror participant failed", "context", c.name, "error", err)
	}
}

func (c *Context) addParticipantLocked(name string) {
	if name == "" {
		return
	}
	if _, ok := c.participantsSet[name]; ok {
		return
	}
	c.participantsSet[name] = struct{}{}
	c.participants = append(c.participants, name)
}

// Trace returns a snapshot of the message trace at the time of the call.
func (c *Context) Trace() []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]message.Message, len(c.messageTrace))
	copy(out, c.messageTrace)
	return out
}

// Participants returns a snapshot of participants in first-seen order.
func (c *Context) Participants() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.participants))
	copy(out, c.participants)
	return out
}
