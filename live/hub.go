package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Типы событий, рассылаемых в комнату соревнования.
const (
	EventRegistrationReviewed = "REGISTRATION_REVIEWED"
	EventSubmissionScored     = "SUBMISSION_SCORED"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Broadcaster — то, что нужно сервисам от хаба: отправить событие всем
// подписчикам соревнования.
type Broadcaster interface {
	BroadcastToCompetition(competitionID int, eventType string, payload interface{})
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan roomMessage

	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
	logger *slog.Logger
}

type roomMessage struct {
	room string
	data []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 64),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Info("live client registered",
				slog.String("room", client.Room),
				slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Info("live client unregistered", slog.String("room", client.Room))
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[msg.room] {
				select {
				case client.Send <- msg.data:
				default:
					// Клиент не успевает читать; отстающих отключит
					// writePump при закрытии канала.
				}
			}
			h.mu.RUnlock()
		}
	}
}

func CompetitionRoom(competitionID int) string {
	return fmt.Sprintf("competition:%d", competitionID)
}

func (h *Hub) BroadcastToCompetition(competitionID int, eventType string, payload interface{}) {
	room := CompetitionRoom(competitionID)
	msg := Message{
		Type:    eventType,
		Payload: payload,
		RoomID:  room,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal live message", slog.Any("error", err))
		return
	}
	h.broadcast <- roomMessage{room: room, data: data}
}
