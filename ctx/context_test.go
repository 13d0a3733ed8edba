package ctx

import (
	"context"
	"testing"

	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
)

func TestAppendTraceRecordsContextNameInvariant(t *testing.T) {
	c := New("default")
	m := message.New("hi", message.Query, message.WithSender("Agent1"), message.WithContextName("default"))
	c.AppendTrace(m)

	trace := c.Trace()
	if len(trace) != 1 {
		t.Fatalf("Trace() len = %d, want 1", len(trace))
	}
	if trace[0].ContextName() != c.Name() {
		t.Fatalf("trace entry context_name = %q, want %q", trace[0].ContextName(), c.Name())
	}
}

func TestParticipantsMonotonicOrder(t *testing.T) {
	c := New("default")
	c.AddParticipant("Agent1")
	c.AddParticipant("Agent2")
	c.AddParticipant("Agent1")

	got := c.Participants()
	want := []string{"Agent1", "Agent2"}
	if len(got) != len(want) {
		t.Fatalf("Participants() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Participants() = %v, want %v", got, want)
		}
	}
}

func TestToolIdleTracksMultiset(t *testing.T) {
	c := New("default")
	if !c.ToolIdle("chat-1") {
		t.Fatalf("ToolIdle() on fresh chat = false, want true")
	}
	c.RecordToolCall("chat-1", "call-1")
	if c.ToolIdle("chat-1") {
		t.Fatalf("ToolIdle() after RecordToolCall = true, want false")
	}
	c.ClearToolCall("chat-1", "call-1")
	if !c.ToolIdle("chat-1") {
		t.Fatalf("ToolIdle() after ClearToolCall = false, want true")
	}
}

func TestPhaseAdvanceSubsetInvariant(t *testing.T) {
	c := New("default")
	c.SetPhaseAssignments("chat-1", [][]string{{"A", "B"}, {"C"}})

	required := c.RequiredAgentsForCurrentPhase("chat-1")
	if len(required) != 2 {
		t.Fatalf("RequiredAgentsForCurrentPhase() = %v, want 2 entries", required)
	}

	if emptied := c.AckAgent("chat-1", "A"); emptied {
		t.Fatalf("AckAgent(A) reported phase emptied too early")
	}
	if emptied := c.AckAgent("chat-1", "B"); !emptied {
		t.Fatalf("AckAgent(B) did not report phase emptied")
	}

	next, inRange := c.AdvancePhase("chat-1")
	if next != 1 || !inRange {
		t.Fatalf("AdvancePhase() = (%d, %v), want (1, true)", next, inRange)
	}
	required = c.RequiredAgentsForCurrentPhase("chat-1")
	if len(required) != 1 || required[0] != "C" {
		t.Fatalf("RequiredAgentsForCurrentPhase() after advance = %v, want [C]", required)
	}
}

func TestStoreGetOrCreateIdempotent(t *testing.T) {
	store := NewStore(registry.New())
	a := store.GetOrCreate("default")
	b := store.GetOrCreate("default")
	if a != b {
		t.Fatalf("GetOrCreate() returned distinct contexts for the same name")
	}
}

// memStore is a minimal in-memory registry.ExternalStore for testing the
// mirror/hydrate path without a real etcd or Consul server.
type memStore struct {
	values map[string][]byte
	lists  map[string][][]byte
	sets   map[string][]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}, lists: map[string][][]byte{}, sets: map[string][]string{}}
}

func (s *memStore) Put(_ context.Context, key string, value []byte) error {
	s.values[key] = value
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *memStore) ListAppend(_ context.Context, key string, value []byte) error {
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *memStore) List(_ context.Context, key string) ([][]byte, error) {
	return s.lists[key], nil
}

func (s *memStore) SetAdd(_ context.Context, key string, value string) error {
	for _, v := range s.sets[key] {
		if v == value {
			return nil
		}
	}
	s.sets[key] = append(s.sets[key], value)
	return nil
}

func (s *memStore) SetMembers(_ context.Context, key string) ([]string, error) {
	return s.sets[key], nil
}

func TestContextMirrorsTraceAndParticipantsIntoExternalStore(t *testing.T) {
	ext := newMemStore()
	c := New("default")
	if err := c.SetExternalStore(context.Background(), ext); err != nil {
		t.Fatalf("SetExternalStore: %v", err)
	}

	m := message.New("hi", message.Query, message.WithSender("Agent1"), message.WithContextName("default"))
	c.AppendTrace(m)
	c.AddParticipant("Agent1")

	if got := len(ext.lists[c.traceKey()]); got != 1 {
		t.Fatalf("mirrored trace entries = %d, want 1", got)
	}
	if got := ext.sets[c.participantsKey()]; len(got) != 1 || got[0] != "Agent1" {
		t.Fatalf("mirrored participants = %v, want [Agent1]", got)
	}
}

func TestContextHydratesFromExternalStoreOnAttach(t *testing.T) {
	ext := newMemStore()
	seed := New("default")
	body, err := message.Serialize(message.New("seeded", message.Query, message.WithContextName("default")))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := ext.ListAppend(context.Background(), seed.traceKey(), body); err != nil {
		t.Fatalf("seed ListAppend: %v", err)
	}
	if err := ext.SetAdd(context.Background(), seed.participantsKey(), "Agent1"); err != nil {
		t.Fatalf("seed SetAdd: %v", err)
	}

	c := New("default")
	if err := c.SetExternalStore(context.Background(), ext); err != nil {
		t.Fatalf("SetExternalStore: %v", err)
	}

	if trace := c.Trace(); len(trace) != 1 || trace[0].Payload() != "seeded" {
		t.Fatalf("hydrated trace = %v, want one message with payload %q", trace, "seeded")
	}
	if participants := c.Participants(); len(participants) != 1 || participants[0] != "Agent1" {
		t.Fatalf("hydrated participants = %v, want [Agent1]", participants)
	}
}

func TestStoreWithExternalStoreMirrorsNewContexts(t *testing.T) {
	ext := newMemStore()
	store := NewStoreWithExternalStore(registry.New(), ext)
	c := store.GetOrCreate("default")
	c.AddParticipant("Agent1")

	if got := ext.sets["default/participants"]; len(got) != 1 || got[0] != "Agent1" {
		t.Fatalf("mirrored participants via Store = %v, want [Agent1]", got)
	}
}
