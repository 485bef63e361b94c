package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/tastebase/live/internal/auth"
	"github.com/tastebase/live/internal/metrics"
	"github.com/tastebase/live/internal/realtime"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sendBufferSize = 64

type RateLimits struct {
	EventsPerSecond float64
	Burst           int
}

type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	registry      realtime.Registry
	router        *Router
	metrics       *metrics.Metrics
	limits        RateLimits
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	registry realtime.Registry,
	router *Router,
	m *metrics.Metrics,
	limits RateLimits,
) *WebSocketServer {
	return &WebSocketServer{
		logger:        logger,
		upgrader:      upgrader,
		authenticator: authenticator,
		registry:      registry,
		router:        router,
		metrics:       m,
		limits:        limits,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws", s.serve)
}

func (s *WebSocketServer) serve(w http.ResponseWriter, r *http.Request) {
	// The credential travels in the upgrade request; a connection that fails
	// verification is rejected before any event can reach a handler.
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)

		return
	}

	identity, err := s.authenticator.VerifyToken(token)
	if err != nil {
		s.logger.Warn("rejected websocket connection",
			zap.Error(err))
		http.Error(w, "invalid credentials", http.StatusUnauthorized)

		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	connectionId, err := gonanoid.New()
	if err != nil {
		s.logger.Error("failed to generate connection id", zap.Error(err))
		wsConn.Close()

		return
	}

	connection := &realtime.Connection{
		Id:       connectionId,
		Identity: *identity,
		Send:     make(chan realtime.Event, sendBufferSize),
	}

	s.registry.Connect(connection)
	s.metrics.ConnectionOpened()

	logger := s.logger.With(
		zap.String("connectionId", connection.Id),
		zap.String("userId", identity.UserId))

	logger.Info("websocket connection established")

	go s.writePump(wsConn, connection, logger)
	s.readPump(r, wsConn, connection, logger)
}

func (s *WebSocketServer) readPump(r *http.Request, wsConn *websocket.Conn, connection *realtime.Connection, logger *zap.Logger) {
	defer func() {
		// Disconnect is idempotent and removes the connection from every
		// room it joined, all under one lock.
		s.registry.Disconnect(connection.Id)
		s.metrics.ConnectionClosed()
		logger.Info("websocket connection closed")
	}()

	wsConn.SetReadLimit(4096)

	limiter := rate.NewLimiter(rate.Limit(s.limits.EventsPerSecond), s.limits.Burst)
	ctx := realtime.WithConnection(r.Context(), connection)

	for {
		var frame realtime.Event
		err := wsConn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.Error(err))
			}

			return
		}

		s.metrics.EventReceived(frame.Event)

		if !limiter.Allow() {
			logger.Warn("rate limit exceeded, dropping event",
				zap.String("event", frame.Event))
			s.sendThrottled(connection)

			continue
		}

		// Events from one connection are processed to completion in order;
		// events from different connections interleave freely.
		s.router.Dispatch(ctx, frame)
	}
}

func (s *WebSocketServer) writePump(wsConn *websocket.Conn, connection *realtime.Connection, logger *zap.Logger) {
	for event := range connection.Send {
		err := wsConn.WriteJSON(event)
		if err != nil {
			logger.Warn("failed to write event", zap.Error(err))

			break
		}
	}

	wsConn.Close()
}

func (s *WebSocketServer) sendThrottled(connection *realtime.Connection) {
	event, err := realtime.NewEvent("error", realtime.ErrorPayload{Message: "rate limit exceeded"})
	if err != nil {
		return
	}

	s.registry.Send(connection.Id, event)
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authorization := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return after
	}

	return ""
}
