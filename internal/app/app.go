package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/auth"
	"github.com/vovakirdan/socketchat-server/internal/config"
	"github.com/vovakirdan/socketchat-server/internal/core"
	"github.com/vovakirdan/socketchat-server/internal/log"
	"github.com/vovakirdan/socketchat-server/internal/store"
	"github.com/vovakirdan/socketchat-server/internal/store/redislog"
	"github.com/vovakirdan/socketchat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/socketchat-server/internal/transport/http"
)

const (
	sessionIssuer   = "socketchat"
	sessionAudience = "socketchat-control"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.MessageLog
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openMessageLog(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.SessionSecret),
		Issuer:   sessionIssuer,
		Audience: sessionAudience,
		TTL:      cfg.Auth.SessionTTL,
	}
	authService, err := auth.NewService(auth.Credentials{
		OperatorPassword:      cfg.Auth.ModPassword,
		SuperOperatorPassword: cfg.Auth.AdminPassword,
	}, jwtConfig)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init auth: %w", err)
	}

	hub := core.NewHub(st, core.HubOptions{
		DefaultRoom:    cfg.DefaultRoom,
		PersistTimeout: cfg.PersistTimeout,
		Logger:         log.Component(logger, "hub"),
	})
	server := transporthttp.NewServer(hub, authService, st, cfg, log.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func openMessageLog(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (store.MessageLog, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		st, err := redislog.New(ctx, redislog.Config{
			Addr:   cfg.RedisAddr,
			Prefix: cfg.RedisPrefix,
			MaxLen: cfg.RedisMaxLen,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("redis_addr", cfg.RedisAddr).Str("prefix", cfg.RedisPrefix).Msg("redis message log initialized")
		return st, nil
	case config.BackendSQLite, "":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.SQLitePath).Msg("sqlite message log initialized")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Run starts the hub and HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	// Connections drain through the hub, so it stops after the server.
	stopHub()
	<-hubDone
	a.cleanup()
	return runErr
}

// cleanup closes the message log.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
