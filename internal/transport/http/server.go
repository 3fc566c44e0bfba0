package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/auth"
	"github.com/vovakirdan/socketchat-server/internal/config"
	"github.com/vovakirdan/socketchat-server/internal/core"
	"github.com/vovakirdan/socketchat-server/internal/store"
)

// ChatEngine is the presence and moderation engine the transport drives.
type ChatEngine interface {
	DefaultRoom() string
	Register(ctx context.Context, c *core.Client) error
	Unregister(c *core.Client) error
	Dispatch(ctx context.Context, cmd *core.Command) error
	Moderate(ctx context.Context, action core.Action) (core.ModerationResult, error)
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP server with every route registered.
func NewServer(hub ChatEngine, authService *auth.Service, messageLog store.MessageLog, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, authService, messageLog, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler serves /ws from a plain mux so the upgrade can hijack the raw
// connection, and hands every other path to the gin router.
func NewHandler(hub ChatEngine, authService *auth.Service, messageLog store.MessageLog, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", NewRouter(hub, authService, messageLog, cfg, logger))
	return mux
}

// NewRouter builds the gin engine serving the history and control surfaces.
func NewRouter(hub ChatEngine, authService *auth.Service, messageLog store.MessageLog, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	history := NewHistoryHandlers(messageLog, hub.DefaultRoom(), cfg.HistoryDefault, cfg.HistoryMax, logger)
	router.GET("/history", history.GetHistory)

	rooms := NewRoomHandlers(hub, logger)
	router.GET("/api/rooms", rooms.ListRooms)

	moderation := NewModerationHandlers(hub, authService, cfg.Auth.SessionTTL, logger)
	moderation.Register(router, SuperOperatorTier)
	moderation.Register(router, OperatorTier)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
