package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/wiseagents/hectormesh/message"
)

// frameKind distinguishes REQUEST from RESPONSE on the wire (spec §4.1's
// "single header distinguishing request from response").
type frameKind int

const (
	frameRequest frameKind = iota
	frameResponse
)

type frame struct {
	kind frameKind
	msg  message.Message
}

// Bus is an in-process broker substitute: a named set of queues with
// ordering preserved per destination, used by tests and by the
// interactive shell's PassThroughClient bridge. It is the minimal broker
// substitute spec §8's end-to-end scenarios call for.
type Bus struct {
	mu     sync.Mutex
	queues map[string]chan frame
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{queues: make(map[string]chan frame)}
}

func (b *Bus) queueFor(name string) chan frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan frame, 256)
		b.queues[name] = q
	}
	return q
}

// Connect returns a Transport bound to the logical address name.
func (b *Bus) Connect(name string) *LoopbackTransport {
	return &LoopbackTransport{bus: b, name: name}
}

// LoopbackTransport is a Transport implementation over an in-process Bus.
type LoopbackTransport struct {
	bus  *Bus
	name string

	mu        sync.Mutex
	callbacks Callbacks
	stopCh    chan struct{}
	done      chan struct{}
	started   bool
}

func (t *LoopbackTransport) SetCallbacks(cb Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = cb
}

// Start begins delivering queued frames addressed to this transport's
// name to the installed callbacks.
func (t *LoopbackTransport) Start(_ context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})
	t.mu.Unlock()

	queue := t.bus.queueFor(t.name)
	go t.dispatchLoop(queue)
	return nil
}

func (t *LoopbackTransport) dispatchLoop(queue chan frame) {
	defer close(t.done)
	for {
		select {
		case f := <-queue:
			t.deliver(f)
		case <-t.stopCh:
			// Drain anything already queued before returning.
			for {
				select {
				case f := <-queue:
					t.deliver(f)
				default:
					return
				}
			}
		}
	}
}

func (t *LoopbackTransport) deliver(f frame) {
	t.mu.Lock()
	cb := t.callbacks
	t.mu.Unlock()

	switch f.kind {
	case frameRequest:
		if cb.OnRequest != nil {
			cb.OnRequest(f.msg)
		}
	case frameResponse:
		if cb.OnResponse != nil {
			cb.OnResponse(f.msg)
		}
	}
}

// Stop signals the dispatch loop to drain and exit, then waits for it.
func (t *LoopbackTransport) Stop(_ context.Context) error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	stopCh := t.stopCh
	done := t.done
	t.mu.Unlock()

	close(stopCh)
	<-done
	return nil
}

func (t *LoopbackTransport) SendRequest(msg message.Message, destAgent string) error {
	return t.send(frameRequest, msg, destAgent)
}

func (t *LoopbackTransport) SendResponse(msg message.Message, destAgent string) error {
	return t.send(frameResponse, msg, destAgent)
}

func (t *LoopbackTransport) send(kind frameKind, msg message.Message, destAgent string) error {
	if destAgent == "" {
		return fmt.Errorf("transport: destination agent name must not be empty")
	}
	queue := t.bus.queueFor(destAgent)
	select {
	case queue <- frame{kind: kind, msg: msg}:
		return nil
	default:
		return &Error{Kind: KindSendFailure, Message: fmt.Sprintf("queue for %q is full", destAgent)}
	}
}
