// Package llm defines the narrow LLM client contract consumed by the
// agent runtime (spec §6) and ships concrete providers.
package llm

import (
	"context"
	"fmt"

	wctx "github.com/wiseagents/hectormesh/ctx"
)

// Completion is the result of ProcessChatCompletion: the model's reply
// text and any tool calls it asked for.
type Completion struct {
	Content   string
	ToolCalls []wctx.ToolCallRequest
}

// Client supplies the two operations spec §6 requires of an LLM
// collaborator.
type Client interface {
	// ProcessSinglePrompt sends text as a single user turn with no prior
	// history and returns the model's text content.
	ProcessSinglePrompt(ctx context.Context, text string) (string, error)

	// ProcessChatCompletion sends history plus the offered tools and
	// returns the model's reply, including any tool calls.
	ProcessChatCompletion(ctx context.Context, history []wctx.ChatMessage, tools []wctx.ToolSchema) (Completion, error)
}

// Error is the LLM package's error type, following the teacher's
// {Component,Operation,Message,Err} idiom.
type Error struct {
	Provider  string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[llm:%s:%s] %s: %v", e.Provider, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[llm:%s:%s] %s", e.Provider, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
