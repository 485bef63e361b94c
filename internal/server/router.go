package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tastebase/live/internal/handler"
	"github.com/tastebase/live/internal/ierr"
	"github.com/tastebase/live/internal/metrics"
	"github.com/tastebase/live/internal/realtime"
	"go.uber.org/zap"
)

// Router maps inbound wire events to their handlers. Any handler failure is
// converted into a single error frame to the sender; nothing a handler does
// can tear down the connection or escape to other room members.
type Router struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	registry realtime.Registry

	joinHandler          *handler.JoinHandler
	leaveHandler         *handler.LeaveHandler
	commentHandler       *handler.CommentHandler
	deleteCommentHandler *handler.DeleteCommentHandler
	toggleLikeHandler    *handler.ToggleLikeHandler
	typingHandler        *handler.TypingHandler
}

func NewRouter(
	logger *zap.Logger,
	m *metrics.Metrics,
	registry realtime.Registry,
	joinHandler *handler.JoinHandler,
	leaveHandler *handler.LeaveHandler,
	commentHandler *handler.CommentHandler,
	deleteCommentHandler *handler.DeleteCommentHandler,
	toggleLikeHandler *handler.ToggleLikeHandler,
	typingHandler *handler.TypingHandler,
) *Router {
	return &Router{
		logger,
		m,
		registry,
		joinHandler,
		leaveHandler,
		commentHandler,
		deleteCommentHandler,
		toggleLikeHandler,
		typingHandler,
	}
}

func (r *Router) Dispatch(ctx context.Context, frame realtime.Event) {
	err := r.handle(ctx, frame)
	if err == nil {
		return
	}

	r.metrics.EventFailed()
	r.sendError(ctx, frame, err)
}

func (r *Router) handle(ctx context.Context, frame realtime.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in event handler",
				zap.String("event", frame.Event),
				zap.Any("panic", rec))

			err = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
		}
	}()

	switch frame.Event {
	case "join-recipe":
		var recipeId string
		if err := decodeData(frame.Data, &recipeId); err != nil {
			return err
		}

		return r.joinHandler.Handle(ctx, recipeId)
	case "leave-recipe":
		var recipeId string
		if err := decodeData(frame.Data, &recipeId); err != nil {
			return err
		}

		return r.leaveHandler.Handle(ctx, recipeId)
	case "new-comment":
		var req handler.NewCommentRequest
		if err := decodeData(frame.Data, &req); err != nil {
			return err
		}

		return r.commentHandler.Handle(ctx, req)
	case "delete-comment":
		var req handler.DeleteCommentRequest
		if err := decodeData(frame.Data, &req); err != nil {
			return err
		}

		return r.deleteCommentHandler.Handle(ctx, req)
	case "toggle-like":
		var req handler.ToggleLikeRequest
		if err := decodeData(frame.Data, &req); err != nil {
			return err
		}

		return r.toggleLikeHandler.Handle(ctx, req)
	case "user-typing":
		var req handler.TypingRequest
		if err := decodeData(frame.Data, &req); err != nil {
			// Typing indicators never error, malformed ones are dropped.
			return nil
		}

		return r.typingHandler.Handle(ctx, req)
	default:
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("unknown event: "+frame.Event))
	}
}

// sendError delivers an error frame to the originating connection only.
func (r *Router) sendError(ctx context.Context, frame realtime.Event, cause error) {
	connection, ok := realtime.ConnectionFromContext(ctx)
	if !ok {
		return
	}

	message := "internal error"

	var appErr ierr.Error
	if errors.As(cause, &appErr) {
		message = appErr.Message
	} else {
		r.logger.Error("unexpected error in event handler",
			zap.String("event", frame.Event),
			zap.String("connectionId", connection.Id),
			zap.Error(cause))
	}

	event, err := realtime.NewEvent("error", realtime.ErrorPayload{Message: message})
	if err != nil {
		r.logger.Error("failed to encode error event", zap.Error(err))

		return
	}

	// Writes to the send channel go through the registry so they cannot race
	// a stale-drop closing it mid-dispatch.
	r.registry.Send(connection.Id, event)
}

func decodeData(data json.RawMessage, v any) error {
	if data == nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing event data"))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid event data: "+err.Error()))
	}

	return nil
}
