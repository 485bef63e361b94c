package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tastebase/live/internal/auth"
	"github.com/tastebase/live/internal/handler"
	"github.com/tastebase/live/internal/metrics"
	"github.com/tastebase/live/internal/realtime"
	"github.com/tastebase/live/internal/server"
	"github.com/tastebase/live/internal/store/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	mongoClient     *mongo.Client
	gateway         *mongodb.Store
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings) (*App, error) {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	gateway := mongodb.NewStore(mongoClient)

	originChecker := server.NewOriginChecker(settings.AllowedOrigins)
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeys)
	registry := realtime.NewInMemoryRegistry(logger)
	m := metrics.New(prometheus.DefaultRegisterer)

	recipeIdValidator := handler.NewRecipeIdValidator()
	router := server.NewRouter(
		logger,
		m,
		registry,
		handler.NewJoinHandler(recipeIdValidator, registry),
		handler.NewLeaveHandler(recipeIdValidator, registry),
		handler.NewCommentHandler(recipeIdValidator, gateway, registry),
		handler.NewDeleteCommentHandler(recipeIdValidator, gateway, registry),
		handler.NewToggleLikeHandler(recipeIdValidator, gateway, registry),
		handler.NewTypingHandler(recipeIdValidator, registry),
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		registry,
		router,
		m,
		server.RateLimits{
			EventsPerSecond: settings.EventsPerSecond,
			Burst:           settings.EventsBurst,
		},
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		registry,
		gateway,
		prometheus.DefaultGatherer,
	)

	return &App{
		logger:          logger,
		settings:        settings,
		mongoClient:     mongoClient,
		gateway:         gateway,
		websocketServer: websocketServer,
		restServer:      restServer,
	}, nil
}

func (a *App) run(ctx context.Context) error {
	setupCtx, setupCtxCancel := context.WithTimeout(ctx, 30*time.Second)
	defer setupCtxCancel()

	err := a.gateway.Setup(setupCtx)
	if err != nil {
		return fmt.Errorf("failed to setup persistence: %w", err)
	}

	a.startHttpServer(ctx)

	disconnectCtx, disconnectCtxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer disconnectCtxCancel()

	return a.mongoClient.Disconnect(disconnectCtx)
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address),
		zap.String("basePath", a.settings.BasePath))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic("failed to parse settings from environment: " + err.Error())
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer logger.Sync()

	app, err := NewApp(logger, settings)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}

	err = app.run(ctx)
	if err != nil {
		logger.Fatal("failed to run", zap.Error(err))
	}
}
