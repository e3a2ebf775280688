package session

import (
	"sync"

	"go.uber.org/zap"
)

// Index is the registry mapping stream identities to interested sessions.
// It is the only shared mutable structure in the gateway: connect, disconnect
// and dispatch all serialize through its lock.
type Index struct {
	logger *zap.Logger
	mu     sync.RWMutex
	refs   map[StreamRef]map[string]*Session
}

// NewIndex creates an empty subscription index
func NewIndex(logger *zap.Logger) *Index {
	return &Index{
		logger: logger.Named("session.index"),
		refs:   map[StreamRef]map[string]*Session{},
	}
}

// Register inserts the session into the bucket of every stream it declared.
// Safe to call before the session authenticates: subscriptions are fixed at
// connect time, so registering early is correct.
func (i *Index) Register(s *Session) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, ref := range s.Subscriptions() {
		bucket, ok := i.refs[ref]
		if !ok {
			bucket = map[string]*Session{}
			i.refs[ref] = bucket
		}
		bucket[s.ID()] = s
	}
	i.logger.Debug("session registered",
		zap.String("session", s.ID()),
		zap.Int("streams", len(s.Subscriptions())))
}

// Unregister removes the session from every bucket. Tolerates sessions that
// were never registered and repeated calls.
func (i *Index) Unregister(s *Session) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, ref := range s.Subscriptions() {
		bucket, ok := i.refs[ref]
		if !ok {
			continue
		}
		delete(bucket, s.ID())
		if len(bucket) == 0 {
			delete(i.refs, ref)
		}
	}
}

// Lookup returns the sessions currently subscribed to the exact stream
// identity. The returned slice is a copy.
func (i *Index) Lookup(ref StreamRef) []*Session {
	i.mu.RLock()
	defer i.mu.RUnlock()
	bucket, ok := i.refs[ref]
	if !ok {
		return nil
	}
	sessions := make([]*Session, 0, len(bucket))
	for _, s := range bucket {
		sessions = append(sessions, s)
	}
	return sessions
}
