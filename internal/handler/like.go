package handler

import (
	"context"
	"errors"

	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
)

type ToggleLikeRequest struct {
	RecipeId string `json:"recipeId" validate:"required"`
}

type LikeUpdated struct {
	RecipeId   string `json:"recipeId"`
	LikesCount int    `json:"likesCount"`
	IsLiked    bool   `json:"isLiked"`
	UserId     string `json:"userId"`
}

type ToggleLikeHandler struct {
	recipeIdValidator *RecipeIdValidator
	gateway           store.Gateway
	registry          realtime.Registry
}

func NewToggleLikeHandler(
	recipeIdValidator *RecipeIdValidator,
	gateway store.Gateway,
	registry realtime.Registry,
) *ToggleLikeHandler {
	return &ToggleLikeHandler{
		recipeIdValidator,
		gateway,
		registry,
	}
}

func (h *ToggleLikeHandler) Handle(ctx context.Context, req ToggleLikeRequest) error {
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

	recipe, err := h.gateway.GetRecipe(ctx, req.RecipeId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Recipe not found"))
	}
	if err != nil {
		return err
	}

	if !recipe.IsPublic {
		return ierr.New(ierr.ErrorCodeFailedPrecondition, errors.New("Cannot like private recipe"))
	}

	state, err := h.gateway.ToggleLike(ctx, req.RecipeId, connection.Identity.UserId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("Recipe not found"))
	}
	if err != nil {
		return err
	}

	event, err := realtime.NewEvent("like-updated", LikeUpdated{
		RecipeId:   req.RecipeId,
		LikesCount: state.Count,
		IsLiked:    state.Liked,
		UserId:     connection.Identity.UserId,
	})
	if err != nil {
		return err
	}

	// The sender sees its own toggle through the broadcast as well.
	h.registry.Broadcast(realtime.RoomId(req.RecipeId), event, realtime.BroadcastOptions{})

	return nil
}
