package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	wctx "github.com/wiseagents/hectormesh/ctx"
)

// AnthropicProvider implements Client over anthropic-sdk-go's Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicProvider returns a provider using apiKey against model.
func NewAnthropicProvider(apiKey string, model anthropic.Model, maxTokens int64) *AnthropicProvider {
	return &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) ProcessSinglePrompt(ctx context.Context, text string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", &Error{Provider: "anthropic", Operation: "ProcessSinglePrompt", Message: "request failed", Err: err}
	}
	return concatText(resp), nil
}

func (p *AnthropicProvider) ProcessChatCompletion(ctx context.Context, history []wctx.ChatMessage, tools []wctx.ToolSchema) (Completion, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))
	var system string
	for _, m := range history {
		switch m.Role {
		case wctx.RoleSystem:
			system = m.Content
		case wctx.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case wctx.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case wctx.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, t := range tools {
			raw, _ := json.Marshal(t.Schema)
			var schema anthropic.ToolInputSchemaParam
			_ = json.Unmarshal(raw, &schema)
			params.Tools = append(params.Tools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: schema,
				},
			})
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, &Error{Provider: "anthropic", Operation: "ProcessChatCompletion", Message: "request failed", Err: err}
	}

	completion := Completion{Content: concatText(resp)}
	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			completion.ToolCalls = append(completion.ToolCalls, wctx.ToolCallRequest{
				ID:        block.ID,
				ToolName:  block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	return completion, nil
}

func concatText(resp *anthropic.Message) string {
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
