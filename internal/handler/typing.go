package handler

import (
	"context"

	"github.com/tastebase/live/internal/realtime"
)

// TypingRequest is relayed verbatim to the rest of the room. The flag is
// ephemeral: nothing is persisted and expiry is enforced client-side.
type TypingRequest struct {
	RecipeId string `json:"recipeId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type TypingHandler struct {
	recipeIdValidator *RecipeIdValidator
	registry          realtime.Registry
}

func NewTypingHandler(
	recipeIdValidator *RecipeIdValidator,
	registry realtime.Registry,
) *TypingHandler {
	return &TypingHandler{
		recipeIdValidator,
		registry,
	}
}

// Handle never answers with an error: malformed typing events are dropped.
func (h *TypingHandler) Handle(ctx context.Context, req TypingRequest) error {
	if err := h.recipeIdValidator.Validate(req.RecipeId); err != nil {
		return nil
	}

	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return nil
	}

	event, err := realtime.NewEvent("user-typing", req)
	if err != nil {
		return nil
	}

	h.registry.Broadcast(realtime.RoomId(req.RecipeId), event, realtime.BroadcastOptions{
		ExcludeConnectionId: connection.Id,
	})

	return nil
}
