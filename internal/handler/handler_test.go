package handler

import (
	"context"
	"testing"

	"github.com/tastebase/live/internal/auth"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
	"github.com/tastebase/live/internal/store/memory"
	"go.uber.org/zap"
)

type testEnv struct {
	registry *realtime.InMemoryRegistry
	gateway  *memory.Store

	// a and b are both joined to recipe 42's room; a is the sender in
	// most tests.
	a *realtime.Connection
	b *realtime.Connection
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	registry := realtime.NewInMemoryRegistry(logger)
	gateway := memory.NewStore()

	gateway.AddRecipe(store.Recipe{
		Id:       "42",
		Title:    "Shakshuka",
		AuthorId: "owner",
		IsPublic: true,
	})
	gateway.AddRecipe(store.Recipe{
		Id:       "77",
		Title:    "Secret sauce",
		AuthorId: "owner",
		IsPublic: false,
	})

	a := &realtime.Connection{
		Id:       "conn-a",
		Identity: auth.Identity{UserId: "user-a", Username: "alice"},
		Send:     make(chan realtime.Event, 16),
	}
	b := &realtime.Connection{
		Id:       "conn-b",
		Identity: auth.Identity{UserId: "user-b", Username: "bob"},
		Send:     make(chan realtime.Event, 16),
	}

	registry.Connect(a)
	registry.Connect(b)
	registry.Join(a.Id, realtime.RoomId("42"))
	registry.Join(b.Id, realtime.RoomId("42"))

	return &testEnv{
		registry: registry,
		gateway:  gateway,
		a:        a,
		b:        b,
	}
}

func (e *testEnv) ctx(conn *realtime.Connection) context.Context {
	return realtime.WithConnection(context.Background(), conn)
}

func received(ch chan realtime.Event) []realtime.Event {
	var events []realtime.Event
	for {
		select {
		case event := <-ch:
			events = append(events, event)
		default:
			return events
		}
	}
}
