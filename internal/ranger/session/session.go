package session

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/auth/jwt"
	"github.com/ysv/peatio-core/internal/bus"
	"github.com/ysv/peatio-core/internal/common/cnst"
	"github.com/ysv/peatio-core/pkg/metrics"
)

// StreamRef identifies one stream a session is interested in.
// Equality is exact, no wildcard matching.
type StreamRef struct {
	Scope bus.Scope
	Name  string
}

var (
	msgAuthSuccess = []byte(`{"success":{"message":"Authenticated."}}`)
	msgAuthFailed  = []byte(`{"error":{"message":"Authentication failed."}}`)
)

// authRequest is the only inbound message type the gateway understands
type authRequest struct {
	JWT string `json:"jwt"`
}

// Session is the per-connection state. The subscription set is computed once
// from the connect-time query and never changes. Auth state only moves
// forward: once authenticated, a session never reverts.
type Session struct {
	id            string
	logger        *zap.Logger
	verifier      *jwt.Verifier
	metrics       *metrics.Metrics
	subscriptions []StreamRef
	createdAt     time.Time

	queue chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	claims *jwt.Claims
	closed bool
}

// New creates a session for a freshly opened connection. The query carries
// zero or more "stream" parameters naming the streams the client wants.
func New(logger *zap.Logger, verifier *jwt.Verifier, metrics *metrics.Metrics, query url.Values, queueSize int) *Session {
	id := uuid.NewString()
	return &Session{
		id:            id,
		logger:        logger.Named("session").With(zap.String("session", id)),
		verifier:      verifier,
		metrics:       metrics,
		subscriptions: parseStreamRefs(query),
		createdAt:     time.Now(),
		queue:         make(chan []byte, queueSize),
		done:          make(chan struct{}),
	}
}

// parseStreamRefs builds the subscription set from connect-time query
// parameters. A raw stream name serves both match rules: public events match
// on "<target>.<stream>" and private events on the bare stream name, so each
// name is indexed under both scopes. Private delivery additionally requires
// an authenticated uid equal to the event target.
func parseStreamRefs(query url.Values) []StreamRef {
	seen := make(map[string]bool)
	var refs []StreamRef
	for _, name := range query["stream"] {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs,
			StreamRef{Scope: bus.ScopePublic, Name: name},
			StreamRef{Scope: bus.ScopePrivate, Name: name},
		)
	}
	return refs
}

// ID returns the session identity
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the session creation time
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Subscriptions returns the immutable subscription set
func (s *Session) Subscriptions() []StreamRef {
	refs := make([]StreamRef, len(s.subscriptions))
	copy(refs, s.subscriptions)
	return refs
}

// Authenticated reports whether the auth handshake has completed
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims != nil
}

// UID returns the authenticated user identity, if any
func (s *Session) UID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return "", false
	}
	return s.claims.UID, true
}

// Claims returns the verified claims, nil while unauthenticated
func (s *Session) Claims() *jwt.Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// Handle processes one inbound frame. The only understood message is the
// auth handshake {"jwt":"Bearer <token>"}; anything else yields the failure
// notification and leaves the session state untouched, so the handshake can
// be retried indefinitely. Frames arriving after authentication are ignored.
func (s *Session) Handle(raw []byte) {
	if s.Authenticated() {
		s.logger.Debug("ignoring frame from authenticated session")
		return
	}

	var req authRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.authFailed("invalid payload", err)
		return
	}
	token, err := jwt.StripBearer(req.JWT)
	if err != nil {
		s.authFailed("invalid jwt field", err)
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		s.authFailed("token rejected", err)
		return
	}

	// The success notification must hit the queue before claims become
	// visible, so no private delivery can precede it.
	if err := s.Send(msgAuthSuccess); err != nil {
		s.logger.Warn("failed to send auth success", zap.Error(err))
	}
	s.mu.Lock()
	s.claims = claims
	s.mu.Unlock()
	s.metrics.AuthResult("success")
	s.logger.Info("session authenticated", zap.String("uid", claims.UID))
}

func (s *Session) authFailed(reason string, err error) {
	s.logger.Debug("authentication failed", zap.String("reason", reason), zap.Error(err))
	s.metrics.AuthResult("failure")
	if err := s.Send(msgAuthFailed); err != nil {
		s.logger.Warn("failed to send auth failure", zap.Error(err))
	}
}

// Send enqueues one outbound frame without blocking. A full queue is
// reported as an error so the caller can tear the session down; a slow
// client must never stall delivery to others.
func (s *Session) Send(payload []byte) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return cnst.ErrSessionClosed
	}
	select {
	case s.queue <- payload:
		return nil
	default:
		return cnst.ErrSessionQueueFull
	}
}

// EventQueue returns the channel the transport write loop drains. Exactly
// one drainer at a time keeps per-session delivery order.
func (s *Session) EventQueue() <-chan []byte {
	return s.queue
}

// Done is closed when session teardown begins
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close marks the session non-deliverable. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.logger.Debug("session closed")
}
