// Package transport implements the broker-mediated message channel
// abstraction of spec §4.1: per-agent point-to-point delivery with a
// four-way callback sink for inbound frames.
package transport

import (
	"context"
	"fmt"

	"github.com/wiseagents/hectormesh/message"
)

// Kind classifies an out-of-band signal delivered to OnEvent/OnError.
type Kind string

const (
	KindConnectionDropped Kind = "connection_dropped"
	KindDecodeFailure     Kind = "decode_failure"
	KindSendFailure       Kind = "send_failure"
)

// Event is an out-of-band broker signal (connection drop and similar).
type Event struct {
	Kind    Kind
	Message string
}

// Error is a structured transport failure delivered to OnError. Decode
// failures and send failures surface here without terminating the
// transport (spec §4.1's failure semantics).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[transport:%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[transport:%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Callbacks is the four-way sink inbound frames are dispatched to
// according to their semantic kind.
type Callbacks struct {
	OnRequest  func(message.Message)
	OnResponse func(message.Message)
	OnEvent    func(Event)
	OnError    func(Error)
}

// Transport is one agent's bound channel to the broker. Each agent owns
// exactly one Transport instance bound to its own logical address.
type Transport interface {
	// SetCallbacks installs the four-way callback sink. Must be called
	// before Start.
	SetCallbacks(Callbacks)

	// Start connects to the broker. Connect/auth failures are fatal and
	// returned to the caller (spec §4.1 failure semantics).
	Start(ctx context.Context) error

	// Stop drains any in-flight dispatch before returning: callbacks in
	// progress complete, no new callbacks fire afterwards.
	Stop(ctx context.Context) error

	// SendRequest sends msg to destAgent's queue as a REQUEST frame.
	// Non-blocking from the caller's perspective; delivery is best-effort
	// with ordering preserved per (sender, destination) pair.
	SendRequest(msg message.Message, destAgent string) error

	// SendResponse sends msg to destAgent's queue as a RESPONSE frame.
	SendResponse(msg message.Message, destAgent string) error
}
