package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/store"
)

func TestDeleteCommentHandler(t *testing.T) {
	newHandler := func(env *testEnv) *DeleteCommentHandler {
		return NewDeleteCommentHandler(NewRecipeIdValidator(), env.gateway, env.registry)
	}

	seedComment := func(t *testing.T, env *testEnv, authorId string) store.Comment {
		t.Helper()

		comment, err := env.gateway.CreateComment(context.Background(), store.CreateCommentRequest{
			RecipeId: "42",
			Author:   store.Author{Id: authorId, Username: "someone"},
			Text:     "delete me",
		})
		assert.NoError(t, err)

		return comment
	}

	t.Run("comment author can delete", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)
		comment := seedComment(t, env, env.a.Identity.UserId)

		err := h.Handle(env.ctx(env.a), DeleteCommentRequest{RecipeId: "42", CommentId: comment.Id})
		assert.NoError(t, err)

		aEvents := received(env.a.Send)
		bEvents := received(env.b.Send)
		assert.Len(t, aEvents, 1)
		assert.Len(t, bEvents, 1)
		assert.Equal(t, "comment-deleted", aEvents[0].Event)

		var payload CommentDeleted
		assert.NoError(t, json.Unmarshal(aEvents[0].Data, &payload))
		assert.Equal(t, comment.Id, payload.CommentId)
		assert.Equal(t, "42", payload.RecipeId)

		_, err = env.gateway.GetComment(context.Background(), comment.Id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("recipe author can delete someone else's comment", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)
		comment := seedComment(t, env, env.b.Identity.UserId)

		// a is not the comment author; make a the recipe owner.
		env.a.Identity.UserId = "owner"

		err := h.Handle(env.ctx(env.a), DeleteCommentRequest{RecipeId: "42", CommentId: comment.Id})
		assert.NoError(t, err)

		_, err = env.gateway.GetComment(context.Background(), comment.Id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("anyone else is denied and the comment survives", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)
		comment := seedComment(t, env, env.b.Identity.UserId)

		err := h.Handle(env.ctx(env.a), DeleteCommentRequest{RecipeId: "42", CommentId: comment.Id})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodePermissionDenied, err.(ierr.Error).Code)
		assert.Equal(t, "Access denied", err.(ierr.Error).Message)
		assert.Empty(t, received(env.a.Send))
		assert.Empty(t, received(env.b.Send))

		_, err = env.gateway.GetComment(context.Background(), comment.Id)
		assert.NoError(t, err)
	})

	t.Run("recipe id must match the comment's recipe", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)
		comment := seedComment(t, env, env.a.Identity.UserId)

		// a owns the comment on recipe 42 but announces the deletion into
		// another recipe's room.
		err := h.Handle(env.ctx(env.a), DeleteCommentRequest{RecipeId: "99", CommentId: comment.Id})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeNotFound, err.(ierr.Error).Code)
		assert.Equal(t, "Comment not found", err.(ierr.Error).Message)
		assert.Empty(t, received(env.a.Send))
		assert.Empty(t, received(env.b.Send))

		_, err = env.gateway.GetComment(context.Background(), comment.Id)
		assert.NoError(t, err)
	})

	t.Run("unknown comment", func(t *testing.T) {
		env := newTestEnv(t)
		h := newHandler(env)

		err := h.Handle(env.ctx(env.a), DeleteCommentRequest{RecipeId: "42", CommentId: "missing"})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeNotFound, err.(ierr.Error).Code)
		assert.Equal(t, "Comment not found", err.(ierr.Error).Message)
	})
}
