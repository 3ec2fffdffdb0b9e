package handlers

import (
	"encoding/json"
	"net/http"

	"ridezon-backend/internal/middleware"
	"ridezon-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin filtering happens at the proxy
	},
}

// WebSocketHandler handles the realtime transport connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	chatService *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, chatService *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		chatService: chatService,
	}
}

// HandleWebSocket handles GET /ws?token=...
//
// After the upgrade the client drives everything with control messages:
// join_group subscribes the connection to one group channel (joining a
// second group leaves the first), send_message goes through the
// persist-then-publish pipeline so the sender gets its own message back
// with the server-assigned id and timestamp.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := services.NewGroupClient(userID, conn)
	go client.WritePump()
	defer func() {
		h.hub.Leave(client)
		conn.Close()
	}()

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	joinedGroup := ""
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(client, "invalid message format")
			continue
		}

		switch msg.Type {
		case services.WSJoinGroup:
			if msg.GroupID == "" {
				h.sendError(client, "groupId is required")
				continue
			}
			if _, err := h.chatService.AuthorizeMember(r.Context(), msg.GroupID, userID); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Str("group_id", msg.GroupID).Msg("Channel join refused")
				h.sendError(client, "cannot join this group")
				continue
			}
			h.hub.Join(client, msg.GroupID)
			joinedGroup = msg.GroupID

		case services.WSSendMessage:
			groupID := msg.GroupID
			if groupID == "" {
				groupID = joinedGroup
			}
			if groupID == "" {
				h.sendError(client, "join a group before sending")
				continue
			}
			// Send persists and broadcasts; the sender sees the result
			// through the fan-out, not through a direct reply.
			if _, err := h.chatService.Send(r.Context(), groupID, userID, msg.Content); err != nil {
				message, _ := serviceErrorMessage(err)
				h.sendError(client, message)
			}

		default:
			h.sendError(client, "unknown message type")
		}
	}
}

func (h *WebSocketHandler) sendError(client *services.GroupClient, message string) {
	payload, err := json.Marshal(services.WSMessage{
		Type:  services.WSError,
		Error: message,
	})
	if err != nil {
		return
	}
	client.Send(payload)
}
