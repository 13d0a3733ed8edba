package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// SequentialCoordinator forwards a request through a fixed chain of agents,
// one at a time, and replies to the original requester with the last
// agent's response (spec §4.6, §8 scenario 5).
type SequentialCoordinator struct {
	*Base
	DefaultErrorHandling

	agents []string

	mu     sync.Mutex
	origin map[string]string // chat_id -> original requester
}

// NewSequentialCoordinator constructs and registers a SequentialCoordinator.
func NewSequentialCoordinator(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, agents []string) (*SequentialCoordinator, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	a := &SequentialCoordinator{
		Base:                 base,
		DefaultErrorHandling: DefaultErrorHandling{agentName: name},
		agents:               append([]string(nil), agents...),
		origin:               make(map[string]string),
	}
	base.SetHooks(a)
	return a, nil
}

func (a *SequentialCoordinator) ProcessRequest(msg message.Message, c *ctx.Context) {
	if len(a.agents) == 0 {
		return
	}
	c.SetAgentsSequence(a.agents)

	chatID := msg.ChatID()
	if chatID == "" {
		chatID = uuid.NewString()
	}

	a.mu.Lock()
	a.origin[chatID] = msg.Sender()
	a.mu.Unlock()

	out := a.NewOutbound(msg.Payload(), message.Query, message.WithChatID(chatID))
	if err := a.SendRequest(out, a.agents[0]); err != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
}

func (a *SequentialCoordinator) ProcessResponse(msg message.Message, c *ctx.Context) {
	sequence := c.AgentsSequence()
	chatID := msg.ChatID()

	idx := indexOf(sequence, msg.Sender())
	if idx == -1 || idx == len(sequence)-1 {
		a.mu.Lock()
		sender, ok := a.origin[chatID]
		delete(a.origin, chatID)
		a.mu.Unlock()
		if !ok {
			return
		}
		out := a.NewOutbound(msg.Payload(), message.Response, message.WithChatID(chatID))
		if err := a.SendResponse(out, sender); err != nil {
			a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
		}
		return
	}

	next := sequence[idx+1]
	out := a.NewOutbound(msg.Payload(), message.Query, message.WithChatID(chatID))
	if err := a.SendRequest(out, next); err != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
}

func indexOf(s []string, v string) int {
	for i, item := range s {
		if item == v {
			return i
		}
	}
	return -1
}
