package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ysv/peatio-core/internal/common/cnst"
)

// Scope classifies an event as market-wide or per-user
type Scope string

const (
	// ScopePublic events are addressed to a market/topic
	ScopePublic Scope = "public"
	// ScopePrivate events are addressed to a single user
	ScopePrivate Scope = "private"
)

// Valid reports whether the scope is one of the known values
func (s Scope) Valid() bool {
	return s == ScopePublic || s == ScopePrivate
}

// Event is a single bus delivery. Target is a market identity for public
// events and a user identity for private ones. Payload is carried verbatim.
type Event struct {
	Scope   Scope           `json:"scope"`
	Target  string          `json:"target"`
	Stream  string          `json:"stream"`
	Payload json.RawMessage `json:"payload"`
}

// Validate checks the fields every event must carry
func (e *Event) Validate() error {
	if e == nil || !e.Scope.Valid() || e.Target == "" || e.Stream == "" {
		return cnst.ErrInvalidEvent
	}
	return nil
}

// Channel returns the bus channel the event is published on,
// "<prefix>.<scope>.<target>.<stream>"
func (e *Event) Channel() string {
	return fmt.Sprintf("%s.%s.%s.%s", cnst.EventsChannelPrefix, e.Scope, e.Target, e.Stream)
}

// Handler consumes one bus event. Handlers are invoked sequentially in
// delivery order; a handler must not retain the event past its return.
type Handler func(*Event)

// Bus is the event transport the gateway consumes from and publishers feed.
type Bus interface {
	// Subscribe registers a handler for every event matching pattern.
	// Delivery order is the order events were published.
	Subscribe(ctx context.Context, pattern string, handler Handler) error

	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event *Event) error

	// Close releases the underlying transport.
	Close() error
}
