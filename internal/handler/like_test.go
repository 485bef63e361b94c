package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/realtime"
)

func TestToggleLikeHandler(t *testing.T) {
	newHandler := func(env *testEnv) *ToggleLikeHandler {
		return NewToggleLikeHandler(NewRecipeIdValidator(), env.gateway, env.registry)
	}

	decodeLike := func(t *testing.T, event realtime.Event) LikeUpdated {
		t.Helper()

		assert.Equal(t, "like-updated", event.Event)
		var payload LikeUpdated
		assert.NoError(t, json.Unmarshal(event.Data, &payload))

		return payload
	}

	t.Run("double toggle likes then unlikes, both broadcast", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)

		err := h.Handle(env.ctx(env.a), ToggleLikeRequest{RecipeId: "42"})
		assert.NoError(t, err)
		err = h.Handle(env.ctx(env.a), ToggleLikeRequest{RecipeId: "42"})
		assert.NoError(t, err)

		aEvents := received(env.a.Send)
		bEvents := received(env.b.Send)
		assert.Len(t, aEvents, 2)
		assert.Len(t, bEvents, 2)

		first := decodeLike(t, aEvents[0])
		assert.True(t, first.IsLiked)
		assert.Equal(t, 1, first.LikesCount)
		assert.Equal(t, "user-a", first.UserId)
		assert.Equal(t, "42", first.RecipeId)

		second := decodeLike(t, aEvents[1])
		assert.False(t, second.IsLiked)
		assert.Equal(t, 0, second.LikesCount)
	})

	t.Run("likes from distinct users accumulate", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)

		assert.NoError(t, h.Handle(env.ctx(env.a), ToggleLikeRequest{RecipeId: "42"}))
		assert.NoError(t, h.Handle(env.ctx(env.b), ToggleLikeRequest{RecipeId: "42"}))

		aEvents := received(env.a.Send)
		assert.Len(t, aEvents, 2)
		assert.Equal(t, 2, decodeLike(t, aEvents[1]).LikesCount)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)

		err := h.Handle(env.ctx(env.a), ToggleLikeRequest{RecipeId: "404"})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeNotFound, err.(ierr.Error).Code)
		assert.Equal(t, "Recipe not found", err.(ierr.Error).Message)
	})

	t.Run("private recipe", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)

		err := h.Handle(env.ctx(env.a), ToggleLikeRequest{RecipeId: "77"})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeFailedPrecondition, err.(ierr.Error).Code)
		assert.Equal(t, "Cannot like private recipe", err.(ierr.Error).Message)
		assert.Empty(t, received(env.a.Send))
	})
}
