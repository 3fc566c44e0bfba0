package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/proto"
	"github.com/vovakirdan/socketchat-server/internal/store"
)

// HistoryHandlers serves the read side of the message log.
type HistoryHandlers struct {
	log          store.MessageLog
	defaultRoom  string
	defaultLimit int
	maxLimit     int
	logger       *zerolog.Logger
}

// NewHistoryHandlers creates history handlers. A nil log serves empty history.
func NewHistoryHandlers(messageLog store.MessageLog, defaultRoom string, defaultLimit, maxLimit int, logger *zerolog.Logger) *HistoryHandlers {
	if maxLimit < 1 {
		maxLimit = 1000
	}
	if defaultLimit < 1 || defaultLimit > maxLimit {
		defaultLimit = min(200, maxLimit)
	}
	return &HistoryHandlers{
		log:          messageLog,
		defaultRoom:  defaultRoom,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// GetHistory returns the most recent messages of a room, oldest first.
// GET /history?room=<name>&limit=<n>
func (h *HistoryHandlers) GetHistory(c *gin.Context) {
	room := strings.TrimSpace(c.Query("room"))
	if room == "" {
		room = h.defaultRoom
	}
	limit := h.parseLimit(c.Query("limit"))

	entries := []proto.HistoryEntry{}
	if h.log == nil {
		c.JSON(http.StatusOK, entries)
		return
	}

	messages, err := h.log.Query(c.Request.Context(), room, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Int("limit", limit).Msg("failed to query history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	for _, msg := range messages {
		entries = append(entries, proto.HistoryEntry{
			User:    msg.User,
			Message: msg.Body,
			TS:      msg.CreatedAt.Format(proto.TimeLayout),
		})
	}
	c.JSON(http.StatusOK, entries)
}

// parseLimit falls back to the default for non-numeric input and clamps the
// rest. Out-of-range integers saturate, so they clamp like any other value.
func (h *HistoryHandlers) parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return h.defaultLimit
	}
	return max(1, min(limit, h.maxLimit))
}
