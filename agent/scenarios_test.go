package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/tool"
	"github.com/wiseagents/hectormesh/transport"
)

const waitTimeout = 2 * time.Second

// stub is a minimal Hooks implementation for tests that need full control
// over ProcessRequest/ProcessResponse behavior.
type stub struct {
	*Base
	DefaultErrorHandling

	onRequest  func(msg message.Message, c *ctx.Context)
	onResponse func(msg message.Message, c *ctx.Context)
}

func newStub(t *testing.T, name string, tr transport.Transport, reg *registry.Registry, store *ctx.Store) *stub {
	t.Helper()
	base, err := NewBase(name, "test stub", tr, reg, store)
	if err != nil {
		t.Fatalf("NewBase(%q): %v", name, err)
	}
	s := &stub{Base: base, DefaultErrorHandling: DefaultErrorHandling{agentName: name}}
	base.SetHooks(s)
	if err := base.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent(%q): %v", name, err)
	}
	t.Cleanup(func() { _ = base.StopAgent(context.Background()) })
	return s
}

func (s *stub) ProcessRequest(msg message.Message, c *ctx.Context) {
	if s.onRequest != nil {
		s.onRequest(msg, c)
	}
}

func (s *stub) ProcessResponse(msg message.Message, c *ctx.Context) {
	if s.onResponse != nil {
		s.onResponse(msg, c)
	}
}

func recvOrTimeout(t *testing.T, ch chan message.Message, what string) message.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		return message.Message{}
	}
}

// TestScenarioRoundTripPing is spec §8 end-to-end scenario 1.
func TestScenarioRoundTripPing(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	requestReceived := make(chan message.Message, 1)
	responseReceived := make(chan message.Message, 1)

	agent2 := newStub(t, "Agent2", bus.Connect("AssistantAgent"), reg, store)
	agent2.onRequest = func(msg message.Message, c *ctx.Context) {
		requestReceived <- msg
		out := agent2.NewOutbound("I am doing nothing since I received "+msg.Payload(), message.Response, message.WithChatID(msg.ChatID()))
		if err := agent2.SendResponse(out, msg.Sender()); err != nil {
			t.Errorf("Agent2 SendResponse: %v", err)
		}
	}

	agent1 := newStub(t, "Agent1", bus.Connect("WiseIntelligentAgentQueue"), reg, store)
	agent1.onResponse = func(msg message.Message, c *ctx.Context) { responseReceived <- msg }

	req := message.New("Do Nothing from Agent1", message.Query, message.WithSender("WiseIntelligentAgentQueue"))
	if err := agent1.SendRequest(req, "AssistantAgent"); err != nil {
		t.Fatalf("Agent1 SendRequest: %v", err)
	}

	got := recvOrTimeout(t, requestReceived, "Agent2's request")
	if got.Payload() != "Do Nothing from Agent1" {
		t.Fatalf("Agent2 received payload %q, want %q", got.Payload(), "Do Nothing from Agent1")
	}

	resp := recvOrTimeout(t, responseReceived, "Agent1's response")
	want := "I am doing nothing since I received Do Nothing from Agent1"
	if resp.Payload() != want {
		t.Fatalf("Agent1 received payload %q, want %q", resp.Payload(), want)
	}

	trace := store.GetOrCreate(message.DefaultContextName).Trace()
	if len(trace) != 2 {
		t.Fatalf("trace length = %d, want 2: %v", len(trace), trace)
	}
	if trace[0].Payload() != "Do Nothing from Agent1" || trace[1].Payload() != want {
		t.Fatalf("trace order wrong: %v", trace)
	}
}

// TestScenarioThreeAgentExchange is spec §8 end-to-end scenario 2.
func TestScenarioThreeAgentExchange(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	reqCh := make(chan message.Message, 8)
	respCh := make(chan message.Message, 8)

	agent2 := newStub(t, "Agent2", bus.Connect("AssistantAgent"), reg, store)
	agent1 := newStub(t, "Agent1", bus.Connect("WiseIntelligentAgentQueue"), reg, store)
	agent3 := newStub(t, "Agent3", bus.Connect("Agent3"), reg, store)

	echo := func(self *stub) func(msg message.Message, c *ctx.Context) {
		return func(msg message.Message, c *ctx.Context) {
			reqCh <- msg
			out := self.NewOutbound("ack: "+msg.Payload(), message.Response, message.WithChatID(msg.ChatID()))
			if err := self.SendResponse(out, msg.Sender()); err != nil {
				t.Errorf("%s SendResponse: %v", self.Name(), err)
			}
		}
	}
	agent1.onRequest = echo(agent1)
	agent2.onRequest = echo(agent2)
	agent3.onRequest = echo(agent3)
	agent1.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }
	agent2.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req1 := message.New("one", message.Query, message.WithSender("WiseIntelligentAgentQueue"))
	if err := agent1.SendRequest(req1, "AssistantAgent"); err != nil {
		t.Fatalf("request 1: %v", err)
	}
	recvOrTimeout(t, reqCh, "request 1 delivered")
	recvOrTimeout(t, respCh, "response 1 delivered")

	req2 := message.New("two", message.Query, message.WithSender("AssistantAgent"))
	if err := agent2.SendRequest(req2, "WiseIntelligentAgentQueue"); err != nil {
		t.Fatalf("request 2: %v", err)
	}
	recvOrTimeout(t, reqCh, "request 2 delivered")
	recvOrTimeout(t, respCh, "response 2 delivered")

	req3 := message.New("three", message.Query, message.WithSender("AssistantAgent"))
	if err := agent2.SendRequest(req3, "Agent3"); err != nil {
		t.Fatalf("request 3: %v", err)
	}
	recvOrTimeout(t, reqCh, "request 3 delivered")
	recvOrTimeout(t, respCh, "response 3 delivered")

	trace := store.GetOrCreate(message.DefaultContextName).Trace()
	if len(trace) != 6 {
		t.Fatalf("trace length = %d, want 6: %v", len(trace), trace)
	}
	wantSenders := []string{"WiseIntelligentAgentQueue", "Agent2", "AssistantAgent", "Agent1", "AssistantAgent", "Agent3"}
	for i, want := range wantSenders {
		if trace[i].Sender() != want {
			t.Fatalf("trace[%d].Sender() = %q, want %q (full trace: %v)", i, trace[i].Sender(), want, trace)
		}
	}

	participants := store.GetOrCreate(message.DefaultContextName).Participants()
	wantParticipants := []string{"Agent1", "Agent2", "Agent3"}
	if len(participants) != len(wantParticipants) {
		t.Fatalf("participants = %v, want %v", participants, wantParticipants)
	}
	for i, want := range wantParticipants {
		if participants[i] != want {
			t.Fatalf("participants = %v, want %v", participants, wantParticipants)
		}
	}
}

// TestScenarioLLMOnlyChat is spec §8 end-to-end scenario 3.
func TestScenarioLLMOnlyChat(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	delivered := make(chan message.Message, 1)
	deliver := func(msg message.Message) { delivered <- msg }

	llmOnly, err := NewLLMOnly("LLMOnlyWiseAgent2", "llm-only", bus.Connect("LLMOnlyWiseAgent2"), reg, store, llm.NewEchoStub("LLM:"))
	if err != nil {
		t.Fatalf("NewLLMOnly: %v", err)
	}
	if err := llmOnly.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = llmOnly.StopAgent(context.Background()) })

	passthrough, err := NewPassThroughClient("PassThroughClientAgent1", "pass-through", bus.Connect("PassThroughClientAgent1"), reg, store, "LLMOnlyWiseAgent2", deliver)
	if err != nil {
		t.Fatalf("NewPassThroughClient: %v", err)
	}
	if err := passthrough.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = passthrough.StopAgent(context.Background()) })

	req := message.New("hello", message.Query, message.WithSender("external"))
	if err := passthrough.SendRequest(req, "PassThroughClientAgent1"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	got := recvOrTimeout(t, delivered, "pass-through delivery")
	if got.Payload() != "LLM:hello" {
		t.Fatalf("delivered payload = %q, want %q", got.Payload(), "LLM:hello")
	}
}

// TestScenarioToolCallRoundTrip is spec §8 end-to-end scenario 4.
func TestScenarioToolCallRoundTrip(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	tools := tool.NewRegistry()
	add := tool.NewDirect("add", "adds two numbers", tool.SchemaFor(struct {
		A int `json:"a"`
		B int `json:"b"`
	}{}), func(_ context.Context, argumentsJSON string) (string, error) {
		var args struct {
			A int `json:"a"`
			B int `json:"b"`
		}
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", args.A+args.B), nil
	})
	if err := tools.Register(add); err != nil {
		t.Fatalf("Register(add): %v", err)
	}

	stubLLM := llm.NewSequencedChatStub(
		llm.Completion{ToolCalls: []ctx.ToolCallRequest{{ID: "call-1", ToolName: "add", Arguments: `{"a":2,"b":3}`}}},
		llm.Completion{Content: "5"},
	)

	a, err := NewLLMWithTools("Calculator", "calculator", bus.Connect("Calculator"), reg, store, stubLLM, tools, "")
	if err != nil {
		t.Fatalf("NewLLMWithTools: %v", err)
	}
	if err := a.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = a.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("what is 2+3?", message.Query)
	if err := requester.SendRequest(req, "Calculator"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "final tool-call response")
	if resp.Payload() != "5" {
		t.Fatalf("final response = %q, want %q", resp.Payload(), "5")
	}

	time.Sleep(20 * time.Millisecond) // let the DropChatCompletions call land
	chatCtx := store.GetOrCreate(message.DefaultContextName)
	if chatCtx.HasChatCompletions(resp.ChatID()) {
		t.Fatalf("chat_completions[%q] still present after final response", resp.ChatID())
	}
}

// TestScenarioSequentialChain is spec §8 end-to-end scenario 5.
func TestScenarioSequentialChain(t *testing.T) {
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	appendName := func(name string) *stub {
		s := newStub(t, name, bus.Connect(name), reg, store)
		s.onRequest = func(msg message.Message, c *ctx.Context) {
			out := s.NewOutbound(msg.Payload()+"-"+name, message.Response, message.WithChatID(msg.ChatID()))
			if err := s.SendResponse(out, msg.Sender()); err != nil {
				t.Errorf("%s SendResponse: %v", name, err)
			}
		}
		return s
	}
	appendName("A")
	appendName("B")
	appendName("C")

	coordinator, err := NewSequentialCoordinator("Coordinator", "sequential", bus.Connect("Coordinator"), reg, store, []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("NewSequentialCoordinator: %v", err)
	}
	if err := coordinator.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = coordinator.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("q", message.Query)
	if err := requester.SendRequest(req, "Coordinator"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	resp := recvOrTimeout(t, respCh, "sequential chain final response")
	if resp.Payload() != "q-A-B-C" {
		t.Fatalf("final response = %q, want %q", resp.Payload(), "q-A-B-C")
	}
}

// TestScenarioPhasedIterationConverges and TestScenarioPhasedIterationExhausts
// are spec §8 end-to-end scenario 6, run with two different thresholds.
func TestScenarioPhasedIterationConverges(t *testing.T) {
	resp := runPhasedScenario(t, 85)
	if resp.Type() != message.Response {
		t.Fatalf("message type = %v, want RESPONSE", resp.Type())
	}
}

func TestScenarioPhasedIterationExhausts(t *testing.T) {
	resp := runPhasedScenario(t, 95)
	if resp.Type() != message.CannotAnswer {
		t.Fatalf("message type = %v, want CANNOT_ANSWER", resp.Type())
	}
	if resp.Payload() != CannotAnswerMessage {
		t.Fatalf("payload = %q, want %q", resp.Payload(), CannotAnswerMessage)
	}
}

func runPhasedScenario(t *testing.T, threshold int) message.Message {
	t.Helper()
	bus := transport.NewBus()
	reg := registry.New()
	store := ctx.NewStore(reg)

	collaboratorLLM := llm.NewSequencedChatStub(
		llm.Completion{Content: "collected some data"},
		llm.Completion{Content: "collected more data"},
	)
	collaborator, err := NewCollaborator("Collaborator1", "collaborator", bus.Connect("Collaborator1"), reg, store, collaboratorLLM)
	if err != nil {
		t.Fatalf("NewCollaborator: %v", err)
	}
	if err := collaborator.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = collaborator.StopAgent(context.Background()) })

	plannerLLM := llm.NewSequencedChatStub(
		llm.Completion{Content: "Collaborator1"},      // planning: agent selection
		llm.Completion{Content: "Collaborator1"},      // planning: phase assignment (one phase)
		llm.Completion{Content: "partial answer\n10"}, // round 1 finalization: answer + score
		llm.Completion{Content: "rephrased query"},    // decision: rephrase
		llm.Completion{Content: "final answer\n90"},   // round 2 finalization: answer + score
	)
	coordinator, err := NewPhasedCoordinator("PhasedCoordinator", "phased", bus.Connect("PhasedCoordinator"), reg, store, plannerLLM, nil, threshold, 2)
	if err != nil {
		t.Fatalf("NewPhasedCoordinator: %v", err)
	}
	if err := coordinator.StartAgent(context.Background()); err != nil {
		t.Fatalf("StartAgent: %v", err)
	}
	t.Cleanup(func() { _ = coordinator.StopAgent(context.Background()) })

	respCh := make(chan message.Message, 1)
	requester := newStub(t, "Requester", bus.Connect("Requester"), reg, store)
	requester.onResponse = func(msg message.Message, c *ctx.Context) { respCh <- msg }

	req := message.New("what is the answer?", message.Query)
	if err := requester.SendRequest(req, "PhasedCoordinator"); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	return recvOrTimeout(t, respCh, "phased coordination terminal response")
}
