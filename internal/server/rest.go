package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tastebase/live/internal/auth"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/store"
	"go.uber.org/zap"
)

// BroadcastRequest lets the main tastebase API nudge live viewers after it
// has mutated durable state over HTTP.
type BroadcastRequest struct {
	RecipeId string `json:"recipeId"`
	Event    string `json:"event"`
	Payload  any    `json:"payload"`
}

type BroadcastResponse struct {
	Success bool `json:"success"`
}

type RESTServer struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator
	registry      realtime.Registry
	gateway       store.Gateway
	gatherer      prometheus.Gatherer
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	registry realtime.Registry,
	gateway store.Gateway,
	gatherer prometheus.Gatherer,
) *RESTServer {
	return &RESTServer{
		logger:        logger,
		authenticator: authenticator,
		registry:      registry,
		gateway:       gateway,
		gatherer:      gatherer,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/broadcast", s.handleBroadcast).Methods("POST", "OPTIONS")
	router.HandleFunc("/recipes/{id}/comments", s.handleListComments).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
}

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *RESTServer) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		return
	}

	apiKey := restBearerToken(r)
	if err := s.authenticator.VerifyAPIKey(apiKey); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	var req BroadcastRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.RecipeId == "" || req.Event == "" {
		http.Error(w, "recipeId and event are required", http.StatusBadRequest)

		return
	}

	event, err := realtime.NewEvent(req.Event, req.Payload)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)

		return
	}

	s.registry.Broadcast(realtime.RoomId(req.RecipeId), event, realtime.BroadcastOptions{})

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(BroadcastResponse{Success: true})
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// handleListComments serves recent comments so clients can hydrate the page
// before joining the room.
func (s *RESTServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	recipeId := mux.Vars(r)["id"]

	comments, err := s.gateway.ListComments(r.Context(), recipeId, 50)
	if err != nil {
		s.logger.Error("failed to list comments",
			zap.String("recipeId", recipeId),
			zap.Error(err))
		http.Error(w, "failed to list comments", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(comments)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func restBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return after
	}

	return ""
}
