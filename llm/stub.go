package llm

import (
	"context"
	"fmt"
	"sync"

	wctx "github.com/wiseagents/hectormesh/ctx"
)

// StubProvider is a scriptable test double. Its zero value echoes single
// prompts with the literal "LLM:" prefix (spec §8 scenario 3) and returns
// ChatCompletions from a pre-programmed sequence (scenario 4: a tool call
// on the first turn, a plain answer on the second).
type StubProvider struct {
	// EchoPrefix prefixes ProcessSinglePrompt's echo; defaults to "LLM:".
	EchoPrefix string

	mu         sync.Mutex
	turns      []Completion
	turnCursor int

	singlePrompts []string
	singleCursor  int
}

// NewEchoStub returns a StubProvider whose ProcessSinglePrompt echoes with
// prefix (spec §8 scenario 3's stub LLM).
func NewEchoStub(prefix string) *StubProvider {
	return &StubProvider{EchoPrefix: prefix}
}

// NewSequencedChatStub returns a StubProvider whose ProcessChatCompletion
// returns each of turns in order, one per call, erroring once exhausted.
func NewSequencedChatStub(turns ...Completion) *StubProvider {
	return &StubProvider{turns: turns}
}

// NewSequencedSinglePromptStub returns a StubProvider whose
// ProcessSinglePrompt returns each of responses in order, one per call,
// falling back to echoing once exhausted (used by CoVeChallenger tests,
// which call ProcessSinglePrompt several times per round for distinct
// purposes: verification questions, per-question answers, revision).
func NewSequencedSinglePromptStub(responses ...string) *StubProvider {
	return &StubProvider{singlePrompts: responses}
}

func (s *StubProvider) ProcessSinglePrompt(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.singleCursor < len(s.singlePrompts) {
		resp := s.singlePrompts[s.singleCursor]
		s.singleCursor++
		return resp, nil
	}
	prefix := s.EchoPrefix
	if prefix == "" {
		prefix = "LLM:"
	}
	return prefix + text, nil
}

func (s *StubProvider) ProcessChatCompletion(_ context.Context, _ []wctx.ChatMessage, _ []wctx.ToolSchema) (Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnCursor >= len(s.turns) {
		return Completion{}, &Error{Provider: "stub", Operation: "ProcessChatCompletion", Message: fmt.Sprintf("no scripted turn left (called %d times)", s.turnCursor+1)}
	}
	turn := s.turns[s.turnCursor]
	s.turnCursor++
	return turn, nil
}
