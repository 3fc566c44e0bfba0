package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/config"
	"github.com/vovakirdan/socketchat-server/internal/core"
	"github.com/vovakirdan/socketchat-server/internal/proto"
	"github.com/vovakirdan/socketchat-server/internal/utils"
)

var errKicked = errors.New("disconnected by moderator")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub    ChatEngine
	cfg    *config.Config
	limits inboundLimits
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub ChatEngine, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		limits: inboundLimits{
			defaultRoom:   hub.DefaultRoom(),
			maxNameLength: cfg.MaxNameLength,
		},
		log: logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), h.cfg.EventBuffer)
	logger := h.log.With().Str("conn_id", client.ID).Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.hub.Register(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("register connection")
		conn.Close(websocket.StatusTryAgainLater, "server unavailable")
		return
	}
	defer func() {
		if err := h.hub.Unregister(client); err != nil {
			logger.Debug().Err(err).Msg("unregister after hub stop")
		}
	}()
	logger.Debug().Str("remote", r.RemoteAddr).Msg("ws connected")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status, reason := closeStatus(err)
	if status == websocket.StatusInternalError {
		logger.Warn().Err(err).Msg("ws connection closed with error")
	} else {
		logger.Debug().Str("reason", reason).Msg("ws disconnected")
	}
	conn.Close(status, reason)
}

// closeStatus maps the error that ended a connection onto a close frame.
func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return websocket.StatusNormalClosure, "closing"
	case errors.Is(err, errKicked):
		return websocket.StatusPolicyViolation, errKicked.Error()
	case errors.Is(err, core.ErrHubStopped):
		return websocket.StatusGoingAway, "server shutting down"
	case errors.Is(err, context.DeadlineExceeded):
		return websocket.StatusGoingAway, "idle timeout"
	}
	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return s, "closing"
	case websocket.StatusMessageTooBig:
		return s, "message too big"
	}
	return websocket.StatusInternalError, err.Error()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.cfg.RateLimit, h.cfg.RateBurst)

	for {
		data, err := h.read(ctx, conn)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			logger.Debug().Msg("inbound frame rate limited")
			if err := h.writeError(ctx, conn, core.NewError(core.ErrCodeRateLimited, "too many messages")); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			if err := h.writeError(ctx, conn, core.NewError(core.ErrCodeBadRequest, "invalid json")); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(client, inbound, h.limits)
		if protoErr != nil {
			logger.Debug().Str("type", inbound.Type).Str("code", protoErr.Code).Msg("rejected inbound frame")
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}
		if err := h.hub.Dispatch(ctx, cmd); err != nil {
			return err
		}
	}
}

// read waits for the next frame, bounded by the idle timeout when one is set.
func (h *WSHandler) read(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	if h.cfg.IdleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.IdleTimeout)
		defer cancel()
	}
	_, data, err := conn.Read(ctx)
	return data, err
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			h.flush(ctx, conn, client)
			conn.Close(websocket.StatusPolicyViolation, errKicked.Error())
			return errKicked
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes events already queued for a kicked client, such as the kick notice.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, e *core.CoreError) error {
	return wsjson.Write(ctx, conn, outboundFromEvent(&core.Event{Kind: core.EventError, Error: e}))
}
