package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/tastebase/live/internal/auth"
	"github.com/tastebase/live/internal/handler"
	"github.com/tastebase/live/internal/metrics"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
	"github.com/tastebase/live/internal/store/memory"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	registry := realtime.NewInMemoryRegistry(logger)
	gateway := memory.NewStore()
	authenticator := auth.NewAuthenticator(testSecret, []string{"test-api-key"})
	m := metrics.New(prometheus.NewRegistry())

	gateway.AddRecipe(store.Recipe{
		Id:       "42",
		Title:    "Shakshuka",
		AuthorId: "owner",
		IsPublic: true,
	})

	recipeIdValidator := handler.NewRecipeIdValidator()
	router := NewRouter(
		logger,
		m,
		registry,
		handler.NewJoinHandler(recipeIdValidator, registry),
		handler.NewLeaveHandler(recipeIdValidator, registry),
		handler.NewCommentHandler(recipeIdValidator, gateway, registry),
		handler.NewDeleteCommentHandler(recipeIdValidator, gateway, registry),
		handler.NewToggleLikeHandler(recipeIdValidator, gateway, registry),
		handler.NewTypingHandler(recipeIdValidator, registry),
	)

	wsServer := NewWebSocketServer(
		logger,
		&websocket.Upgrader{},
		authenticator,
		registry,
		router,
		m,
		RateLimits{EventsPerSecond: 100, Burst: 200},
	)

	mainRouter := mux.NewRouter()
	wsServer.Register(mainRouter)

	server := httptest.NewServer(mainRouter)
	t.Cleanup(server.Close)

	return server, gateway
}

func userToken(t *testing.T, userId string, username string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":      userId,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
		"aud":      "tastebase",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	assert.NoError(t, err)

	return tokenString
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	u, _ := url.Parse(server.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	assert.NoError(t, err)

	frame := realtime.Event{Event: event, Data: raw}
	assert.NoError(t, conn.WriteJSON(frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()

	var frame realtime.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.NoError(t, conn.ReadJSON(&frame))

	return frame
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	var frame realtime.Event
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	err := conn.ReadJSON(&frame)
	assert.Error(t, err, "expected no event, got %q", frame.Event)
}

// Joins have no acknowledgement, so tests give the server a moment to
// process them before depending on room membership.
func settle() {
	time.Sleep(100 * time.Millisecond)
}

func TestWebSocketServer_Authentication(t *testing.T) {
	server, _ := newTestServer(t)

	u, _ := url.Parse(server.URL)
	u.Scheme = "ws"
	u.Path = "/ws"

	t.Run("missing token", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)

		assert.Error(t, err)
		assert.Nil(t, conn)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		u.RawQuery = "token=not-a-jwt"
		conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)

		assert.Error(t, err)
		assert.Nil(t, conn)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token in authorization header", func(t *testing.T) {
		u.RawQuery = ""
		header := http.Header{}
		header.Set("Authorization", "Bearer "+userToken(t, "user-a", "alice"))

		conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)

		assert.NoError(t, err)
		conn.Close()
	})
}

func TestWebSocketServer_EndToEnd(t *testing.T) {
	server, gateway := newTestServer(t)

	connA := dial(t, server, userToken(t, "user-a", "alice"))
	connB := dial(t, server, userToken(t, "user-b", "bob"))

	send(t, connA, "join-recipe", "42")
	send(t, connB, "join-recipe", "42")
	settle()

	// A comments; both A and B receive the broadcast.
	send(t, connA, "new-comment", handler.NewCommentRequest{RecipeId: "42", Text: "Great recipe!"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		frame := readEvent(t, conn)
		assert.Equal(t, "comment-added", frame.Event)

		var payload handler.CommentAdded
		assert.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, "Great recipe!", payload.Comment.Text)
		assert.Equal(t, "alice", payload.Comment.Author.Username)
		assert.Equal(t, "42", payload.RecipeId)
	}

	comments, err := gateway.ListComments(t.Context(), "42", 0)
	assert.NoError(t, err)
	assert.Len(t, comments, 1)

	// B leaves; only A sees the like update.
	send(t, connB, "leave-recipe", "42")
	settle()

	send(t, connA, "toggle-like", handler.ToggleLikeRequest{RecipeId: "42"})

	frame := readEvent(t, connA)
	assert.Equal(t, "like-updated", frame.Event)

	var like handler.LikeUpdated
	assert.NoError(t, json.Unmarshal(frame.Data, &like))
	assert.True(t, like.IsLiked)
	assert.Equal(t, 1, like.LikesCount)
	assert.Equal(t, "user-a", like.UserId)

	expectSilence(t, connB)
}

func TestWebSocketServer_TypingExcludesSender(t *testing.T) {
	server, _ := newTestServer(t)

	connA := dial(t, server, userToken(t, "user-a", "alice"))
	connB := dial(t, server, userToken(t, "user-b", "bob"))

	send(t, connA, "join-recipe", "42")
	send(t, connB, "join-recipe", "42")
	settle()

	send(t, connA, "user-typing", handler.TypingRequest{RecipeId: "42", Username: "alice", IsTyping: true})

	frame := readEvent(t, connB)
	assert.Equal(t, "user-typing", frame.Event)

	var payload handler.TypingRequest
	assert.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "alice", payload.Username)
	assert.True(t, payload.IsTyping)

	expectSilence(t, connA)
}

func TestWebSocketServer_ErrorFrames(t *testing.T) {
	server, _ := newTestServer(t)

	connA := dial(t, server, userToken(t, "user-a", "alice"))
	connB := dial(t, server, userToken(t, "user-b", "bob"))

	send(t, connA, "join-recipe", "42")
	send(t, connB, "join-recipe", "42")
	settle()

	t.Run("invalid comment is answered to the sender only", func(t *testing.T) {
		send(t, connA, "new-comment", handler.NewCommentRequest{RecipeId: "42", Text: ""})

		frame := readEvent(t, connA)
		assert.Equal(t, "error", frame.Event)

		var payload realtime.ErrorPayload
		assert.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, "Comment text is required", payload.Message)

		expectSilence(t, connB)
	})

	t.Run("unknown event name", func(t *testing.T) {
		send(t, connA, "no-such-event", map[string]string{})

		frame := readEvent(t, connA)
		assert.Equal(t, "error", frame.Event)
	})

	t.Run("connection survives errors", func(t *testing.T) {
		send(t, connA, "toggle-like", handler.ToggleLikeRequest{RecipeId: "42"})

		frame := readEvent(t, connA)
		assert.Equal(t, "like-updated", frame.Event)
	})
}

func TestWebSocketServer_DisconnectCleanup(t *testing.T) {
	server, _ := newTestServer(t)

	connA := dial(t, server, userToken(t, "user-a", "alice"))
	connB := dial(t, server, userToken(t, "user-b", "bob"))

	send(t, connA, "join-recipe", "42")
	send(t, connB, "join-recipe", "42")
	settle()

	connB.Close()
	settle()

	// The room no longer has B; A's comment should still fan out fine.
	send(t, connA, "new-comment", handler.NewCommentRequest{RecipeId: "42", Text: "still here"})

	frame := readEvent(t, connA)
	assert.Equal(t, "comment-added", frame.Event)
}
