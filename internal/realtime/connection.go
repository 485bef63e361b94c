package realtime

import (
	"context"

	"github.com/tastebase/live/internal/auth"
)

// Connection is one authenticated client's live channel. Identity is set
// before the connection is registered; events for an unauthenticated socket
// are never dispatched.
type Connection struct {
	Id       string
	Identity auth.Identity
	Send     chan Event
}

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, conn *Connection) context.Context {
	return context.WithValue(ctx, connectionKey, conn)
}

func ConnectionFromContext(ctx context.Context) (*Connection, bool) {
	conn, ok := ctx.Value(connectionKey).(*Connection)

	return conn, ok
}
