package handler

import (
	"context"
	"errors"

	"github.com/tastebase/live/internal/realtime"
)

type JoinHandler struct {
	recipeIdValidator *RecipeIdValidator
	registry          realtime.Registry
}

func NewJoinHandler(
	recipeIdValidator *RecipeIdValidator,
	registry realtime.Registry,
) *JoinHandler {
	return &JoinHandler{
		recipeIdValidator,
		registry,
	}
}

func (h *JoinHandler) Handle(ctx context.Context, recipeId string) error {
	err := h.recipeIdValidator.Validate(recipeId)
	if err != nil {
		return err
	}

	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return errors.New("connection not found in context")
	}

	h.registry.Join(connection.Id, realtime.RoomId(recipeId))

	return nil
}
