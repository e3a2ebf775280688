package ranger

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/auth/jwt"
	"github.com/ysv/peatio-core/internal/bus"
	"github.com/ysv/peatio-core/internal/common/config"
	"github.com/ysv/peatio-core/internal/ranger/session"
	"github.com/ysv/peatio-core/pkg/metrics"
)

// Server wires the websocket transport to session lifecycle and the bus
// subscription to the dispatcher. It owns the subscription index: sessions
// register on connect and are removed synchronously when teardown begins.
type Server struct {
	logger     *zap.Logger
	cfg        *config.RangerConfig
	verifier   *jwt.Verifier
	bus        bus.Bus
	index      *session.Index
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
}

// NewServer creates the gateway server
func NewServer(logger *zap.Logger, cfg *config.RangerConfig, verifier *jwt.Verifier, b bus.Bus, m *metrics.Metrics) *Server {
	index := session.NewIndex(logger)
	return &Server{
		logger:     logger.Named("ranger"),
		cfg:        cfg,
		verifier:   verifier,
		bus:        b,
		index:      index,
		dispatcher: NewDispatcher(logger, index, m),
		metrics:    m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Clients authenticate via token, not cookies
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// RegisterRoutes registers the websocket and metrics endpoints
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET(s.cfg.Server.Path, s.handleConnection)
	router.GET("/metrics", s.metrics.Handler())
}

// Start subscribes the dispatcher to the bus. One subscription covers all
// public and private traffic; filtering is done entirely by the index and
// the dispatcher after receipt.
func (s *Server) Start(ctx context.Context) error {
	pattern := s.cfg.Bus.Pattern
	return s.bus.Subscribe(ctx, pattern, s.dispatcher.Dispatch)
}

// handleConnection upgrades the request and runs the connection to
// completion. The read loop drives the auth handshake; a dedicated write
// loop drains the session queue so delivery order per session is fixed.
func (s *Server) handleConnection(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	sess := session.New(s.logger, s.verifier, s.metrics, c.Request.URL.Query(), s.cfg.Server.SessionQueueSize)
	s.index.Register(sess)
	s.metrics.ConnectionOpened()
	s.logger.Info("client connected",
		zap.String("session", sess.ID()),
		zap.Int("streams", len(sess.Subscriptions())))

	go s.writePump(conn, sess)
	s.readPump(conn, sess)
}

// readPump feeds inbound frames to the session until the connection drops.
// Its deferred teardown is the single place a connection's index entries are
// removed, so no delivery can happen once it runs.
func (s *Server) readPump(conn *websocket.Conn, sess *session.Session) {
	defer func() {
		sess.Close()
		s.index.Unregister(sess)
		_ = conn.Close()
		s.metrics.ConnectionClosed()
		s.logger.Info("client disconnected", zap.String("session", sess.ID()))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read error", zap.String("session", sess.ID()), zap.Error(err))
			}
			return
		}
		sess.Handle(data)
	}
}

// writePump is the session's only queue drainer. A write failure means the
// remote end is gone: the session is torn down and the error swallowed.
func (s *Server) writePump(conn *websocket.Conn, sess *session.Session) {
	for {
		select {
		case payload := <-sess.EventQueue():
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("write failed, closing session",
					zap.String("session", sess.ID()),
					zap.Error(err))
				sess.Close()
				s.index.Unregister(sess)
				_ = conn.Close()
				return
			}
		case <-sess.Done():
			_ = conn.Close()
			return
		}
	}
}
