package agent

import (
	"context"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// LLMOnly answers a request with a single LLM completion, no tools and no
// retrieval (spec §4.6).
type LLMOnly struct {
	*Base
	DefaultErrorHandling

	client llm.Client
}

// NewLLMOnly constructs and registers an LLMOnly agent.
func NewLLMOnly(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, client llm.Client) (*LLMOnly, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	a := &LLMOnly{Base: base, DefaultErrorHandling: DefaultErrorHandling{agentName: name}, client: client}
	base.SetHooks(a)
	return a, nil
}

func (a *LLMOnly) ProcessRequest(msg message.Message, _ *ctx.Context) {
	content, err := a.client.ProcessSinglePrompt(context.Background(), msg.Payload())
	if err != nil {
		a.replyError(msg, err)
		return
	}
	out := a.NewOutbound(content, message.Response, message.WithChatID(msg.ChatID()))
	if sendErr := a.SendResponse(out, msg.Sender()); sendErr != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: sendErr.Error(), Err: sendErr})
	}
}

func (a *LLMOnly) ProcessResponse(message.Message, *ctx.Context) {}

func (a *LLMOnly) replyError(msg message.Message, err error) {
	out := a.NewOutbound(err.Error(), message.Response, message.WithChatID(msg.ChatID()))
	_ = a.SendResponse(out, msg.Sender())
}
