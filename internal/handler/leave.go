package handler

import (
	"context"
	"errors"

	"github.com/tastebase/live/internal/realtime"
)

type LeaveHandler struct {
	recipeIdValidator *RecipeIdValidator
	registry          realtime.Registry
}

func NewLeaveHandler(
	recipeIdValidator *RecipeIdValidator,
	registry realtime.Registry,
) *LeaveHandler {
	return &LeaveHandler{
		recipeIdValidator,
		registry,
	}
}

func (h *LeaveHandler) Handle(ctx context.Context, recipeId string) error {
	err := h.recipeIdValidator.Validate(recipeId)
	if err != nil {
		return err
	}

	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return errors.New("connection not found in context")
	}

	h.registry.Leave(connection.Id, realtime.RoomId(recipeId))

	return nil
}
