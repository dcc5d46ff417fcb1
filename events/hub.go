// Package events delivers live referee-management events (assignments,
// availabilities, tournament status changes) to connected admin dashboards
// over WebSocket. Rooms are keyed by notification scope: one room per zone
// plus a shared national room.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/golf-arbitri/referee-system/models"
)

const (
	EventAssignmentCreated      = "ASSIGNMENT_CREATED"
	EventAssignmentConfirmed    = "ASSIGNMENT_CONFIRMED"
	EventAssignmentDeleted      = "ASSIGNMENT_DELETED"
	EventAvailabilitySubmitted  = "AVAILABILITY_SUBMITTED"
	EventAvailabilityWithdrawn  = "AVAILABILITY_WITHDRAWN"
	EventTournamentStatusChange = "TOURNAMENT_STATUS_CHANGED"
)

// NationalRoom receives events for national-type tournaments.
const NationalRoom = "national"

// ZoneRoom returns the room name for a zone.
func ZoneRoom(zoneID int) string {
	return fmt.Sprintf("zone:%d", zoneID)
}

// RoomForTournament maps a tournament to its notification room, mirroring the
// mailbox routing: national tournaments go to the national room, zonal ones
// to their zone's room.
func RoomForTournament(t *models.Tournament) string {
	if t.IsNational() {
		return NationalRoom
	}
	if t.ZoneID != nil {
		return ZoneRoom(*t.ZoneID)
	}
	return NationalRoom
}

// Message — событие, рассылаемое в комнату.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
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
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom отправляет событие всем клиентам в указанной комнате.
// Медленные клиенты с заполненным каналом пропускаются.
func (h *Hub) BroadcastToRoom(room string, eventType string, payload interface{}) {
	messageBytes, err := json.Marshal(Message{Type: eventType, Payload: payload, Room: room})
	if err != nil {
		log.Printf("events: failed to marshal message for room %s: %v", room, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
		}
		client.Mu.Unlock()
	}
}

// BroadcastTournamentEvent routes an event to the tournament's room.
func (h *Hub) BroadcastTournamentEvent(t *models.Tournament, eventType string, payload interface{}) {
	h.BroadcastToRoom(RoomForTournament(t), eventType, payload)
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Входящие сообщения от дашбордов игнорируются: канал односторонний.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("events: client in room %s closed unexpectedly: %v", c.Room, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Сливаем накопившиеся сообщения в тот же фрейм.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
