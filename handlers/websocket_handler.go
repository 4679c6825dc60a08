package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/live"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true
	},
}

type WebSocketHandler struct {
	hub                *live.Hub
	competitionService services.CompetitionService
	logger             *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, competitionService services.CompetitionService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                hub,
		competitionService: competitionService,
		logger:             logger,
	}
}

// ServeWs подключает клиента к live-ленте конкретного соревнования.
// Клиент подключается к /ws/competitions/{competitionID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Не создаём комнату для несуществующего соревнования.
	if _, err := h.competitionService.GetCompetitionByID(r.Context(), competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		h.logger.Error("failed to upgrade websocket connection",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: live.CompetitionRoom(competitionID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("live client connected", slog.String("room", client.Room))
}
