package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/deltacrown/bracket-engine/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origins once they are fixed.
		return true
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeTournament subscribes the client to bracket events for one tournament.
// GET /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, realtime.TournamentRoom(tournamentID))
}

// ServeRankings subscribes the client to ranking cycle announcements.
// GET /ws/rankings
func (h *WebSocketHandler) ServeRankings(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, realtime.RankingsRoom)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Error("websocket upgrade failed", slog.String("room", room), slog.Any("error", err))
		return
	}
	h.hub.NewClient(conn, room)
	h.logger.Debug("websocket client connected", slog.String("room", room))
}
