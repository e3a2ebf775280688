package ranger

import (
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/bus"
	"github.com/ysv/peatio-core/internal/ranger/session"
	"github.com/ysv/peatio-core/pkg/metrics"
)

// Dispatcher fans one bus event out to every matching session. It is driven
// by a single bus consumer goroutine and processes one event fully before
// the next, which is what preserves per-session delivery order.
type Dispatcher struct {
	logger  *zap.Logger
	index   *session.Index
	metrics *metrics.Metrics
}

// NewDispatcher creates a dispatcher over the given subscription index
func NewDispatcher(logger *zap.Logger, index *session.Index, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		logger:  logger.Named("dispatcher"),
		index:   index,
		metrics: m,
	}
}

// lookupRef computes the index key for an event. Public events match on the
// composite "<target>.<stream>" name; private events match on the bare
// stream name, with the target uid re-checked per session because the index
// does not encode user identity.
func lookupRef(event *bus.Event) session.StreamRef {
	if event.Scope == bus.ScopePublic {
		return session.StreamRef{Scope: bus.ScopePublic, Name: event.Target + "." + event.Stream}
	}
	return session.StreamRef{Scope: bus.ScopePrivate, Name: event.Stream}
}

// Dispatch delivers one bus event. Malformed events are dropped with a
// diagnostic; a failed write tears that session down and never affects
// delivery to the others.
func (d *Dispatcher) Dispatch(event *bus.Event) {
	if err := event.Validate(); err != nil {
		d.logger.Warn("dropping malformed bus event", zap.Error(err))
		d.metrics.EventDropped("malformed")
		return
	}
	d.metrics.EventConsumed(string(event.Scope))

	for _, sess := range d.index.Lookup(lookupRef(event)) {
		if event.Scope == bus.ScopePrivate {
			uid, ok := sess.UID()
			if !ok || uid != event.Target {
				continue
			}
		}
		if err := sess.Send(event.Payload); err != nil {
			d.logger.Warn("delivery failed, closing session",
				zap.String("session", sess.ID()),
				zap.String("stream", event.Stream),
				zap.Error(err))
			d.metrics.EventDropped("send_failed")
			sess.Close()
			d.index.Unregister(sess)
			continue
		}
		d.metrics.EventDelivered(string(event.Scope))
	}
}
