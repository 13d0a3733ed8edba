package agent

import (
	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// DeliveryFunc receives a response the interactive shell (or any other
// external caller) should see.
type DeliveryFunc func(message.Message)

// PassThroughClient forwards any request to a single downstream agent and
// forwards the matching response to an injected delivery callback — the
// bridge the interactive shell uses to reach the runtime (spec §4.6).
type PassThroughClient struct {
	*Base
	DefaultErrorHandling

	downstream string
	deliver    DeliveryFunc
}

// NewPassThroughClient constructs and registers a PassThroughClient.
func NewPassThroughClient(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, downstream string, deliver DeliveryFunc) (*PassThroughClient, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	p := &PassThroughClient{
		Base:                 base,
		DefaultErrorHandling: DefaultErrorHandling{agentName: name},
		downstream:           downstream,
		deliver:              deliver,
	}
	base.SetHooks(p)
	return p, nil
}

func (p *PassThroughClient) ProcessRequest(msg message.Message, _ *ctx.Context) {
	out := p.NewOutbound(msg.Payload(), msg.Type(),
		message.WithChatID(msg.ChatID()),
		message.WithToolID(msg.ToolID()),
	)
	if err := p.SendRequest(out, p.downstream); err != nil {
		p.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
}

func (p *PassThroughClient) ProcessResponse(msg message.Message, _ *ctx.Context) {
	if p.deliver != nil {
		p.deliver(msg)
	}
}
