package message

import "testing"

func TestDefaultContextName(t *testing.T) {
	m := New("hello", Query)
	if m.ContextName() != DefaultContextName {
		t.Fatalf("ContextName() = %q, want %q", m.ContextName(), DefaultContextName)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := New("Do Nothing from Agent1", Query,
		WithSender("WiseIntelligentAgentQueue"),
		WithChatID("chat-1"),
		WithToolID("tool-1"),
		WithContextName("default"),
		WithRouteResponseTo("Agent1"),
	)

	data, err := Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if got != m {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestWithSenderSetDoesNotClobber(t *testing.T) {
	m := New("x", Response, WithSender("already-set"))
	got := m.WithSenderSet("other")
	if got.Sender() != "already-set" {
		t.Fatalf("Sender() = %q, want %q", got.Sender(), "already-set")
	}

	m2 := New("x", Response)
	got2 := m2.WithSenderSet("stamped")
	if got2.Sender() != "stamped" {
		t.Fatalf("Sender() = %q, want %q", got2.Sender(), "stamped")
	}
}
