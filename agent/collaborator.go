package agent

import (
	"context"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// Collaborator answers one phase of a PhasedCoordinator's query using the
// chat history already accumulated for the chat_id, appends its reply to
// that shared history, and acknowledges the coordinator with an empty-
// payload ACK (spec §4.6, §4.7 Phase execution).
type Collaborator struct {
	*Base
	DefaultErrorHandling

	client llm.Client
}

// NewCollaborator constructs and registers a Collaborator.
func NewCollaborator(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, client llm.Client) (*Collaborator, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	a := &Collaborator{Base: base, DefaultErrorHandling: DefaultErrorHandling{agentName: name}, client: client}
	base.SetHooks(a)
	return a, nil
}

func (a *Collaborator) ProcessRequest(msg message.Message, c *ctx.Context) {
	chatID := msg.ChatID()
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: msg.Payload()})

	completion, err := a.client.ProcessChatCompletion(context.Background(), c.ChatCompletions(chatID), nil)
	if err != nil {
		// A Collaborator that cannot answer still acknowledges so the
		// coordinator's phase does not stall waiting on it forever; the
		// failure is surfaced through process_error instead.
		a.ProcessError(transport.Error{Kind: transport.KindDecodeFailure, Message: "collaborator completion failed", Err: err})
		a.ack(msg)
		return
	}

	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, Content: completion.Content})
	a.ack(msg)
}

func (a *Collaborator) ack(msg message.Message) {
	out := a.NewOutbound("", message.Ack, message.WithChatID(msg.ChatID()))
	if err := a.SendResponse(out, msg.Sender()); err != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
}

func (a *Collaborator) ProcessResponse(message.Message, *ctx.Context) {}
