package http

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/auth"
	"github.com/vovakirdan/socketchat-server/internal/core"
)

// Tier describes one privileged control surface.
type Tier struct {
	Privilege auth.Privilege
	Base      string
	Cookie    string
	// Broadcast enables POST <Base>/broadcast.
	Broadcast bool
}

var (
	// SuperOperatorTier is served under /admin.
	SuperOperatorTier = Tier{
		Privilege: auth.PrivilegeSuperOperator,
		Base:      "/admin",
		Cookie:    "socketchat_admin",
		Broadcast: true,
	}
	// OperatorTier is served under /mod.
	OperatorTier = Tier{
		Privilege: auth.PrivilegeOperator,
		Base:      "/mod",
		Cookie:    "socketchat_mod",
	}
)

// PanelResponse is the control panel state returned after every panel request.
type PanelResponse struct {
	Privilege    string          `json:"privilege"`
	Rooms        []core.RoomView `json:"rooms"`
	Disconnected int             `json:"disconnected,omitempty"`
}

// ModerationHandlers serves login, panel and logout for each tier.
type ModerationHandlers struct {
	hub         ChatEngine
	authService *auth.Service
	sessionTTL  time.Duration
	log         *zerolog.Logger
}

// NewModerationHandlers creates moderation handlers.
func NewModerationHandlers(hub ChatEngine, authService *auth.Service, sessionTTL time.Duration, logger *zerolog.Logger) *ModerationHandlers {
	return &ModerationHandlers{
		hub:         hub,
		authService: authService,
		sessionTTL:  sessionTTL,
		log:         logger,
	}
}

// Register mounts the tier's routes on router.
func (h *ModerationHandlers) Register(router gin.IRouter, tier Tier) {
	router.GET(tier.Base, h.LoginPage(tier))
	router.POST(tier.Base, h.Login(tier))

	protected := router.Group(tier.Base, SessionMiddleware(h.authService, tier, h.log))
	protected.GET("/panel", h.Panel(tier))
	protected.POST("/panel", h.Act(tier))
	protected.POST("/logout", h.Logout(tier))
	if tier.Broadcast {
		protected.POST("/broadcast", h.Broadcast(tier))
	}
}

// LoginPage renders the credential prompt, or skips it for a live session.
// GET /admin, GET /mod
func (h *ModerationHandlers) LoginPage(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(tier.Cookie); err == nil && h.authService.Privilege(token) == tier.Privilege {
			c.Redirect(http.StatusSeeOther, tier.Base+"/panel")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginForm(tier)))
	}
}

// Login checks the tier password and starts a session.
// POST /admin, POST /mod
func (h *ModerationHandlers) Login(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := h.authService.Login(tier.Privilege, c.PostForm("password"))
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrTierDisabled) {
				h.log.Error().Err(err).Str("tier", tier.Privilege.String()).Msg("failed to login")
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				return
			}
			h.log.Info().Str("tier", tier.Privilege.String()).Str("client_ip", c.ClientIP()).Msg("rejected control login")
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "invalid password"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(tier.Cookie, token, int(h.sessionTTL.Seconds()), "/", "", false, true)
		h.log.Info().Str("tier", tier.Privilege.String()).Msg("control session started")
		c.Redirect(http.StatusSeeOther, tier.Base+"/panel")
	}
}

// Panel returns the current moderation state.
// GET /admin/panel, GET /mod/panel
func (h *ModerationHandlers) Panel(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.respondPanel(c, tier, core.ModerationResult{})
	}
}

// Act applies the form's moderation action, then returns the panel state.
// Missing fields make the request a no-op.
// POST /admin/panel, POST /mod/panel
func (h *ModerationHandlers) Act(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawAction := strings.TrimSpace(c.PostForm("action"))
		if rawAction == "" {
			h.respondPanel(c, tier, core.ModerationResult{})
			return
		}

		kind, err := core.ParseAction(rawAction)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
			return
		}
		if !tier.Privilege.Allows(kind) {
			h.log.Info().Str("tier", tier.Privilege.String()).Str("action", string(kind)).Msg("action not allowed for tier")
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "action not allowed"})
			return
		}

		action := core.Action{
			Kind:  kind,
			Room:  strings.TrimSpace(c.PostForm("room")),
			User:  strings.TrimSpace(c.PostForm("user")),
			Text:  c.PostForm("msg"),
			Actor: tier.Privilege.Actor(),
		}
		result, ok := h.moderate(c, action)
		if !ok {
			return
		}
		h.respondPanel(c, tier, result)
	}
}

// Broadcast sends a notice to every connection.
// POST /admin/broadcast
func (h *ModerationHandlers) Broadcast(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := core.Action{
			Kind:  core.ActionBroadcast,
			Text:  c.PostForm("msg"),
			Actor: tier.Privilege.Actor(),
		}
		if _, ok := h.moderate(c, action); !ok {
			return
		}
		c.Redirect(http.StatusSeeOther, tier.Base+"/panel")
	}
}

// Logout ends the session.
// POST /admin/logout, POST /mod/logout
func (h *ModerationHandlers) Logout(tier Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(tier.Cookie, "", -1, "/", "", false, true)
		c.Redirect(http.StatusSeeOther, tier.Base)
	}
}

// moderate runs action, treating incomplete actions as no-ops. It writes the
// error response itself and reports false when the request is finished.
func (h *ModerationHandlers) moderate(c *gin.Context, action core.Action) (core.ModerationResult, bool) {
	result, err := h.hub.Moderate(c.Request.Context(), action)
	switch {
	case err == nil:
		return result, true
	case errors.Is(err, core.ErrBadRequest):
		h.log.Debug().Err(err).Str("action", string(action.Kind)).Msg("ignoring incomplete moderation action")
		return core.ModerationResult{}, true
	default:
		h.log.Error().Err(err).Str("action", string(action.Kind)).Msg("failed to apply moderation action")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
		return core.ModerationResult{}, false
	}
}

func (h *ModerationHandlers) respondPanel(c *gin.Context, tier Tier, result core.ModerationResult) {
	snap, err := h.hub.Snapshot(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to snapshot rooms")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
		return
	}
	rooms := snap.Rooms
	if rooms == nil {
		rooms = []core.RoomView{}
	}
	c.JSON(http.StatusOK, PanelResponse{
		Privilege:    tier.Privilege.String(),
		Rooms:        rooms,
		Disconnected: result.Disconnected,
	})
}

func loginForm(tier Tier) string {
	return fmt.Sprintf(`<!doctype html>
<title>%[1]s login</title>
<form method="post" action="%[2]s">
  <label>Password <input type="password" name="password" autofocus></label>
  <button type="submit">Log in</button>
</form>
`, html.EscapeString(tier.Privilege.String()), html.EscapeString(tier.Base))
}
