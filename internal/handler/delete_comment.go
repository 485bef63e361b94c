package handler

import (
	"context"
	"errors"

	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
)

type DeleteCommentRequest struct {
	RecipeId  string `json:"recipeId" validate:"required"`
	CommentId string `json:"commentId" validate:"required"`
}

type CommentDeleted struct {
	CommentId string `json:"commentId"`
	RecipeId  string `json:"recipeId"`
}

type DeleteCommentHandler struct {
	recipeIdValidator *RecipeIdValidator
	gateway           store.Gateway
	registry          realtime.Registry
}

func NewDeleteCommentHandler(
	recipeIdValidator *RecipeIdValidator,
	gateway store.Gateway,
	registry realtime.Registry,
) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		recipeIdValidator,
		gateway,
		registry,
	}
}

func (h *DeleteCommentHandler) Handle(ctx context.Context, req DeleteCommentRequest) error {
	if err := validate.Struct(req); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	if err := h.recipeIdValidator.Validate(req.RecipeId); err != nil {
		return err
	}

	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return errors.New("connection not found in context")
	}

	comment, err := h.gateway.GetComment(ctx, req.CommentId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Comment not found"))
	}
	if err != nil {
		return err
	}

	// The announced recipe must be the one the comment belongs to, otherwise
	// a sender could delete their own comment yet broadcast the deletion into
	// an unrelated recipe's room.
	if comment.RecipeId != req.RecipeId {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Comment not found"))
	}

	recipe, err := h.gateway.GetRecipe(ctx, comment.RecipeId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Recipe not found"))
	}
	if err != nil {
		return err
	}

	// Only the comment's author or the recipe's author may delete.
	callerId := connection.Identity.UserId
	if callerId != comment.Author.Id && callerId != recipe.AuthorId {
		return ierr.New(ierr.ErrorCodePermissionDenied, errors.New("Access denied"))
	}

	err = h.gateway.DeleteComment(ctx, req.CommentId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Comment not found"))
	}
	if err != nil {
		return err
	}

	event, err := realtime.NewEvent("comment-deleted", CommentDeleted{
		CommentId: req.CommentId,
		RecipeId:  comment.RecipeId,
	})
	if err != nil {
		return err
	}

	h.registry.Broadcast(realtime.RoomId(comment.RecipeId), event, realtime.BroadcastOptions{})

	return nil
}
