package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/graphstore"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
	"github.com/wiseagents/hectormesh/vectorstore"
)

func TestVectorRAGAnswersWithSourceDocumentsFooter(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	vstore := &vectorstore.StubStore{Results: []vectorstore.Document{
		{Content: "Paris is the capital of France.", Metadata: map[string]any{"source": "doc1"}},
	}}

	a, err := NewVectorRAG("VectorRAG", "vector rag", bus.Connect("VectorRAG"), reg, store, llm.NewEchoStub("LLM:"), vstore, "docs", 3)
	if err != nil {
		t.Fatalf("NewVectorRAG: %v", err)
	}
	if err := a.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = a.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("what is the capital of France?", message.Query)
	if err := requester.SendRequest(req, "VectorRAG"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "VectorRAG response")
	if !strings.Contains(resp.Payload(), "LLM:Answer the question based only on the following context:") {
		t.Fatalf("response missing prompt-derived prefix: %q", resp.Payload())
	}
	if !strings.Contains(resp.Payload(), "Source Documents:") || !strings.Contains(resp.Payload(), "Paris is the capital of France.") {
		t.Fatalf("response missing source documents footer: %q", resp.Payload())
	}
}

func TestGraphRAGAnswersWithSourceDocumentsFooter(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	gstore := &graphstore.StubStore{Results: []graphstore.Document{
		{Content: "Related fact.", Metadata: map[string]any{"hops": 1}},
	}}

	a, err := NewGraphRAG("GraphRAG", "graph rag", bus.Connect("GraphRAG"), reg, store, llm.NewEchoStub("LLM:"), gstore, 3, "")
	if err != nil {
		t.Fatalf("NewGraphRAG: %v", err)
	}
	if err := a.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = a.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("tell me more", message.Query)
	if err := requester.SendRequest(req, "GraphRAG"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "GraphRAG response")
	if !strings.Contains(resp.Payload(), "Source Documents:") || !strings.Contains(resp.Payload(), "Related fact.") {
		t.Fatalf("response missing source documents footer: %q", resp.Payload())
	}
}

func TestCoVeChallengerRevisesAnswer(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	vstore := &vectorstore.StubStore{Results: []vectorstore.Document{
		{Content: "supporting fact", Metadata: nil},
	}}

	scripted := llm.NewSequencedSinglePromptStub(
		"is the baseline correct?",
		"yes, it checks out",
		"{'revised': 'the corrected answer'}",
	)

	a, err := NewCoVeChallenger("CoVe", "cove challenger", bus.Connect("CoVe"), reg, store, scripted, vstore, "docs", 1)
	if err != nil {
		t.Fatalf("NewCoVeChallenger: %v", err)
	}
	if err := a.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = a.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	// Payload already combines the question and a baseline answer, as a
	// RAG agent's output feeding into CoVe would (spec §4.6).
	req := message.New("is X true?\nBaseline answer: yes, X is true.", message.Query)
	if err := requester.SendRequest(req, "CoVe"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "CoVe response")
	if resp.Payload() != "the corrected answer" {
		t.Fatalf("response = %q, want %q", resp.Payload(), "the corrected answer")
	}
}

func TestCoVeChallengerSurfacesNonConformingOutputAsError(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	vstore := &vectorstore.StubStore{Results: []vectorstore.Document{{Content: "fact"}}}

	scripted := llm.NewSequencedSinglePromptStub(
		"is the baseline correct?",
		"yes",
		"the answer is definitely correct", // does not match {'revised': '...'}
	)

	a, err := NewCoVeChallenger("CoVe", "cove challenger", bus.Connect("CoVe"), reg, store, scripted, vstore, "docs", 1)
	if err != nil {
		t.Fatalf("NewCoVeChallenger: %v", err)
	}
	if err := a.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = a.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("is X true?\nBaseline answer: yes, X is true.", message.Query)
	if err := requester.SendRequest(req, "CoVe"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "CoVe error response")
	want := (&CoVeError{Raw: "the answer is definitely correct"}).Error()
	if resp.Payload() != want {
		t.Fatalf("response = %q, want %q", resp.Payload(), want)
	}
}
