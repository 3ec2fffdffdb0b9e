package services

import (
	"encoding/json"
	"sync"
	"time"

	"ridezon-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket control message types
const (
	WSJoinGroup      = "join_group"
	WSSendMessage    = "send_message"
	WSReceiveMessage = "receive_message"
	WSError          = "error"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket control message
type WSMessage struct {
	Type    string          `json:"type"`
	GroupID string          `json:"groupId,omitempty"`
	Content string          `json:"content,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GroupClient is one live connection. A client is subscribed to at most
// one group channel at a time; joining another group leaves the first.
type GroupClient struct {
	UserID    string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewGroupClient wraps an upgraded connection
func NewGroupClient(userID string, conn *websocket.Conn) *GroupClient {
	return &GroupClient{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
}

// WritePump serializes all writes to the connection. Run in its own
// goroutine; returns when the send channel is closed.
func (c *GroupClient) WritePump() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Str("user_id", c.UserID).Msg("WebSocket write failed")
			return
		}
	}
}

// Send queues a payload for the client, dropping it if the client's
// buffer is full (a slow consumer must not stall the fan-out loop).
func (c *GroupClient) Send(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// WSHub is the realtime transport: a fan-out table from group channel id
// to the set of live connections joined to that channel. All of the
// table's mutations happen on join/leave; publish only reads it.
type WSHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*GroupClient]bool
	relay Relay
}

// NewWSHub creates a new hub. relay may be nil for single-process
// deployments; when set, published messages are forwarded to the relay
// and messages arriving from it are fanned out to local connections.
func NewWSHub(relay Relay) *WSHub {
	h := &WSHub{
		rooms: make(map[string]map[*GroupClient]bool),
		relay: relay,
	}
	if relay != nil {
		relay.Subscribe(h.fanOut)
	}
	return h
}

// Join subscribes the client to a group channel, leaving any channel it
// was joined to before.
func (h *WSHub) Join(client *GroupClient, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
	if h.rooms[groupID] == nil {
		h.rooms[groupID] = make(map[*GroupClient]bool)
	}
	h.rooms[groupID][client] = true

	log.Debug().Str("user_id", client.UserID).Str("group_id", groupID).Msg("Client joined group channel")
}

// Leave removes the client from the fan-out table and releases its send
// channel. Nothing is delivered to a disconnected client; whatever it
// missed is recovered from a history fetch on reconnect.
func (h *WSHub) Leave(client *GroupClient) {
	h.mu.Lock()
	h.removeLocked(client)
	h.mu.Unlock()
	client.closeOnce.Do(func() { close(client.send) })
}

func (h *WSHub) removeLocked(client *GroupClient) bool {
	for groupID, room := range h.rooms {
		if room[client] {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, groupID)
			}
			return true
		}
	}
	return false
}

// Broadcast delivers a persisted message to every connection joined to
// the group's channel, including the sender's own, and forwards it to
// the relay for other transport processes.
func (h *WSHub) Broadcast(groupID string, msg *models.Message) {
	payload, err := json.Marshal(WSMessage{
		Type:    WSReceiveMessage,
		GroupID: groupID,
		Message: msg,
	})
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to marshal broadcast")
		return
	}

	h.fanOut(groupID, payload)

	if h.relay != nil {
		if err := h.relay.Publish(groupID, payload); err != nil {
			log.Error().Err(err).Str("group_id", groupID).Msg("Failed to publish to relay")
		}
	}
}

func (h *WSHub) fanOut(groupID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[groupID] {
		if !client.Send(payload) {
			log.Warn().Str("user_id", client.UserID).Str("group_id", groupID).Msg("Dropping message for slow client")
		}
	}
}

// ConnectedUserIDs reports which users currently hold a connection
// joined to the group's channel. Used to skip push notifications for
// users who are seeing the message live.
func (h *WSHub) ConnectedUserIDs(groupID string) map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connected := make(map[string]bool, len(h.rooms[groupID]))
	for client := range h.rooms[groupID] {
		connected[client.UserID] = true
	}
	return connected
}
