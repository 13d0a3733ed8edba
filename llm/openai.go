package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	wctx "github.com/wiseagents/hectormesh/ctx"
)

// OpenAIProvider implements Client over sashabaranov/go-openai's chat
// completion API, including function-calling tool schemas.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider returns a provider using apiKey against model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIProvider) ProcessSinglePrompt(ctx context.Context, text string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", &Error{Provider: "openai", Operation: "ProcessSinglePrompt", Message: "request failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: "openai", Operation: "ProcessSinglePrompt", Message: "no choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) ProcessChatCompletion(ctx context.Context, history []wctx.ChatMessage, tools []wctx.ToolSchema) (Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, toOpenAIMessage(m))
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if len(tools) > 0 {
		req.Tools = make([]openai.Tool, 0, len(tools))
		for _, t := range tools {
			req.Tools = append(req.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Schema,
				},
			})
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, &Error{Provider: "openai", Operation: "ProcessChatCompletion", Message: "request failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &Error{Provider: "openai", Operation: "ProcessChatCompletion", Message: "no choices returned"}
	}

	choice := resp.Choices[0].Message
	completion := Completion{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, wctx.ToolCallRequest{
			ID:        tc.ID,
			ToolName:  tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return completion, nil
}

func toOpenAIMessage(m wctx.ChatMessage) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    string(m.Role),
		Content: m.Content,
	}
	if m.Role == wctx.RoleTool {
		msg.ToolCallID = m.ToolCallID
	}
	return msg
}
