package handler

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
)

const maxCommentLength = 500

type NewCommentRequest struct {
	RecipeId string `json:"recipeId" validate:"required"`
	Text     string `json:"text"`
}

type CommentAdded struct {
	Comment  store.Comment `json:"comment"`
	RecipeId string        `json:"recipeId"`
}

type CommentHandler struct {
	recipeIdValidator *RecipeIdValidator
	gateway           store.Gateway
	registry          realtime.Registry
}

func NewCommentHandler(
	recipeIdValidator *RecipeIdValidator,
	gateway store.Gateway,
	registry realtime.Registry,
) *CommentHandler {
	return &CommentHandler{
		recipeIdValidator,
		gateway,
		registry,
	}
}

func (h *CommentHandler) Handle(ctx context.Context, req NewCommentRequest) error {
	if err := validate.Struct(req); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	if err := h.recipeIdValidator.Validate(req.RecipeId); err != nil {
		return err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("Comment text is required"))
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("Comment must be less than 500 characters"))
	}

	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return errors.New("connection not found in context")
	}

	recipe, err := h.gateway.GetRecipe(ctx, req.RecipeId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Recipe not found"))
	}
	if err != nil {
		return err
	}

	if !recipe.IsPublic {
		return ierr.New(ierr.ErrorCodeFailedPrecondition, errors.New("Cannot comment on private recipe"))
	}

	comment, err := h.gateway.CreateComment(ctx, store.CreateCommentRequest{
		RecipeId: req.RecipeId,
		Author: store.Author{
			Id:       connection.Identity.UserId,
			Username: connection.Identity.Username,
		},
		Text: text,
	})
	if err != nil {
		return err
	}

	event, err := realtime.NewEvent("comment-added", CommentAdded{
		Comment:  comment,
		RecipeId: req.RecipeId,
	})
	if err != nil {
		return err
	}

	// The sender gets the broadcast too; it renders the comment only once
	// the server confirms it was persisted.
	h.registry.Broadcast(realtime.RoomId(req.RecipeId), event, realtime.BroadcastOptions{})

	return nil
}
