package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wiseagents/hectormesh/message"
)

func TestLoopbackDeliversRequestToDestination(t *testing.T) {
	bus := NewBus()
	a1 := bus.Connect("Agent1")
	a2 := bus.Connect("Agent2")

	received := make(chan message.Message, 1)
	a2.SetCallbacks(Callbacks{
		OnRequest: func(m message.Message) { received <- m },
	})

	ctx := context.Background()
	if err := a1.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a2.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a1.Stop(ctx)
	defer a2.Stop(ctx)

	msg := message.New("Do Nothing from Agent1", message.Query, message.WithSender("Agent1"))
	if err := a1.SendRequest(msg, "Agent2"); err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}

	select {
	case got := <-received:
		if got.Payload() != msg.Payload() {
			t.Fatalf("received payload = %q, want %q", got.Payload(), msg.Payload())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestLoopbackPreservesOrderPerDestination(t *testing.T) {
	bus := NewBus()
	a1 := bus.Connect("Agent1")
	a2 := bus.Connect("Agent2")

	var mu sync.Mutex
	var order []string
	a2.SetCallbacks(Callbacks{
		OnRequest: func(m message.Message) {
			mu.Lock()
			order = append(order, m.Payload())
			mu.Unlock()
		},
	})

	ctx := context.Background()
	_ = a1.Start(ctx)
	_ = a2.Start(ctx)
	defer a1.Stop(ctx)
	defer a2.Stop(ctx)

	for _, payload := range []string{"one", "two", "three"} {
		_ = a1.SendRequest(message.New(payload, message.Query, message.WithSender("Agent1")), "Agent2")
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"one", "two", "three"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStopDrainsInFlightFrames(t *testing.T) {
	bus := NewBus()
	a1 := bus.Connect("Agent1")
	a2 := bus.Connect("Agent2")

	var mu sync.Mutex
	delivered := 0
	a2.SetCallbacks(Callbacks{
		OnRequest: func(message.Message) {
			mu.Lock()
			delivered++
			mu.Unlock()
		},
	})

	ctx := context.Background()
	_ = a1.Start(ctx)

	for i := 0; i < 5; i++ {
		_ = a1.SendRequest(message.New("x", message.Query), "Agent2")
	}

	// a2 never started its dispatch loop before Stop; queueing then
	// starting then immediately stopping should still drain the queue.
	_ = a2.Start(ctx)
	_ = a2.Stop(ctx)

	mu.Lock()
	defer mu.Unlock()
	if delivered != 5 {
		t.Fatalf("delivered = %d, want 5", delivered)
	}
}
