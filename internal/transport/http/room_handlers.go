package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RoomHandlers provides read-only room listings.
type RoomHandlers struct {
	hub ChatEngine
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub ChatEngine, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomResponse represents an occupied room in API responses.
type RoomResponse struct {
	Name    string   `json:"name"`
	Locked  bool     `json:"locked"`
	Members []string `json:"members"`
}

// ListRooms handles listing rooms that currently have members.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	snap, err := h.hub.Snapshot(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to snapshot rooms")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
		return
	}

	rooms := make([]RoomResponse, 0, len(snap.Rooms))
	for _, room := range snap.Rooms {
		if len(room.Members) == 0 {
			continue
		}
		rooms = append(rooms, RoomResponse{
			Name:    room.Name,
			Locked:  room.Locked,
			Members: room.Members,
		})
	}
	c.JSON(http.StatusOK, rooms)
}
