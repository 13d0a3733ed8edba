package agent

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/tool"
	"github.com/wiseagents/hectormesh/transport"
)

// LLMWithTools implements the tool invocation protocol of spec §4.5:
// offer this agent's tools to the model, execute direct tool calls
// synchronously, round-trip agent-backed tool calls asynchronously, and
// emit the final reply exactly when required_tool_calls empties.
type LLMWithTools struct {
	*Base
	DefaultErrorHandling

	client       llm.Client
	tools        *tool.Registry
	systemPrompt string

	mu            sync.Mutex
	routeResponse map[string]string // chat_id -> original sender
}

// NewLLMWithTools constructs and registers an LLMWithTools agent.
func NewLLMWithTools(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, client llm.Client, tools *tool.Registry, systemPrompt string) (*LLMWithTools, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	a := &LLMWithTools{
		Base:                 base,
		DefaultErrorHandling: DefaultErrorHandling{agentName: name},
		client:               client,
		tools:                tools,
		systemPrompt:         systemPrompt,
		routeResponse:        make(map[string]string),
	}
	base.SetHooks(a)
	return a, nil
}

func (a *LLMWithTools) availableToolSchemas() []ctx.ToolSchema {
	descs := a.tools.List()
	schemas := make([]ctx.ToolSchema, 0, len(descs))
	for _, d := range descs {
		schemas = append(schemas, ctx.ToolSchema{Name: d.Name(), Description: d.Description(), Schema: d.Schema()})
	}
	return schemas
}

func (a *LLMWithTools) ProcessRequest(msg message.Message, c *ctx.Context) {
	chatID := msg.ChatID()
	if chatID == "" {
		chatID = uuid.NewString()
	}

	a.mu.Lock()
	a.routeResponse[chatID] = msg.Sender()
	a.mu.Unlock()

	if a.systemPrompt != "" {
		c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleSystem, Content: a.systemPrompt})
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: msg.Payload()})

	schemas := a.availableToolSchemas()
	c.SetAvailableTools(chatID, schemas)

	completion, err := a.client.ProcessChatCompletion(context.Background(), c.ChatCompletions(chatID), schemas)
	if err != nil {
		a.surfaceError(c, chatID, msg.Sender(), err)
		return
	}

	if len(completion.ToolCalls) == 0 {
		// No tools were called: this degenerates to the LLMOnly path
		// (spec §8 boundary behavior).
		a.finalize(c, chatID, completion.Content)
		return
	}

	for _, call := range completion.ToolCalls {
		c.RecordToolCall(chatID, call.ID)
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, ToolCalls: completion.ToolCalls})

	for _, call := range completion.ToolCalls {
		a.dispatchToolCall(c, chatID, call)
	}

	if c.ToolIdle(chatID) {
		a.callFinalAndRespond(c, chatID)
	}
}

func (a *LLMWithTools) dispatchToolCall(c *ctx.Context, chatID string, call ctx.ToolCallRequest) {
	descriptor, ok := a.tools.Get(call.ToolName)
	if !ok {
		c.ClearToolCall(chatID, call.ID)
		a.mu.Lock()
		sender := a.routeResponse[chatID]
		a.mu.Unlock()
		out := a.NewOutbound("unknown tool: "+call.ToolName, message.Response, message.WithChatID(chatID))
		_ = a.SendResponse(out, sender)
		return
	}

	if descriptor.IsAgentBacked() {
		out := a.NewOutbound(call.Arguments, message.ActionRequest,
			message.WithChatID(chatID),
			message.WithToolID(call.ID),
			message.WithRouteResponseTo(a.routeResponseLocked(chatID)),
		)
		if err := a.SendRequest(out, call.ToolName); err != nil {
			a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
		}
		return
	}

	result, err := descriptor.Execute(context.Background(), call.Arguments)
	if err != nil {
		// Malformed tool-argument JSON or executor failure: surface to
		// process_error and leave the chat state intact so the caller
		// may retry (spec §4.5 edge cases).
		a.ProcessError(transport.Error{Kind: transport.KindDecodeFailure, Message: "tool execution failed: " + err.Error(), Err: err})
		return
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleTool, Content: result, ToolCallID: call.ID, ToolName: call.ToolName})
	c.ClearToolCall(chatID, call.ID)
}

func (a *LLMWithTools) routeResponseLocked(chatID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.routeResponse[chatID]
}

// ProcessResponse handles the asynchronous half of an agent-backed tool
// call: append its output keyed by tool_id/sender, clear the matching
// required_tool_calls entry, and finalize once the multiset empties.
func (a *LLMWithTools) ProcessResponse(msg message.Message, c *ctx.Context) {
	chatID := msg.ChatID()
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleTool, Content: msg.Payload(), ToolCallID: msg.ToolID(), ToolName: msg.Sender()})
	c.ClearToolCall(chatID, msg.ToolID())

	if c.ToolIdle(chatID) {
		a.callFinalAndRespond(c, chatID)
	}
}

func (a *LLMWithTools) callFinalAndRespond(c *ctx.Context, chatID string) {
	completion, err := a.client.ProcessChatCompletion(context.Background(), c.ChatCompletions(chatID), nil)
	if err != nil {
		a.mu.Lock()
		sender := a.routeResponse[chatID]
		a.mu.Unlock()
		a.surfaceError(c, chatID, sender, err)
		return
	}
	a.finalize(c, chatID, completion.Content)
}

func (a *LLMWithTools) finalize(c *ctx.Context, chatID, content string) {
	a.mu.Lock()
	sender := a.routeResponse[chatID]
	delete(a.routeResponse, chatID)
	a.mu.Unlock()

	out := a.NewOutbound(content, message.Response, message.WithChatID(chatID))
	if err := a.SendResponse(out, sender); err != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
	c.DropChatCompletions(chatID)
}

func (a *LLMWithTools) surfaceError(c *ctx.Context, chatID, sender string, err error) {
	out := a.NewOutbound(err.Error(), message.Response, message.WithChatID(chatID))
	_ = a.SendResponse(out, sender)
	_ = c
}
