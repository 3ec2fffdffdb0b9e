// Package chatclient implements the client side of the group messaging
// protocol: one WebSocket connection per session, one joined group
// channel at a time, and an in-memory message buffer reconciled by
// message id against a history fetch.
package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"ridezon-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// State is the session's connection state
type State int

// Session states
const (
	Disconnected State = iota
	Connecting
	Joined
)

var reconnectWait = 2 * time.Second

type wsFrame struct {
	Type    string          `json:"type"`
	GroupID string          `json:"groupId,omitempty"`
	Content string          `json:"content,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Session is one client view onto a single group channel. The zero
// value is not usable; construct with New. All exported methods are
// safe for concurrent use.
//
// A Session holds its credentials explicitly. Construct one per open
// group view and Close it when the view goes away.
type Session struct {
	baseURL    string
	wsURL      string
	token      string
	httpClient *http.Client

	mu        sync.Mutex
	state     State
	groupID   string
	conn      *websocket.Conn
	byID      map[string]models.Message
	onMessage func(models.Message)
	closed    bool
}

// New creates a session against the given server base URL, e.g.
// "http://localhost:4000".
func New(baseURL, token string) *Session {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws"
	return &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		wsURL:      wsURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		byID:       make(map[string]models.Message),
	}
}

// OnMessage registers a callback invoked for every message newly added
// to the buffer, from history or from the live channel. Must be set
// before Join.
func (s *Session) OnMessage(fn func(models.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join connects (if needed), subscribes to the group's channel and
// fetches the group's history. The live subscription and the history
// fetch run independently; the buffer merges both by message id, so
// either arrival order produces the same result.
func (s *Session) Join(ctx context.Context, groupID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session is closed")
	}
	s.state = Connecting
	s.groupID = groupID
	s.byID = make(map[string]models.Message)
	needDial := s.conn == nil
	s.mu.Unlock()

	if needDial {
		if err := s.dial(ctx); err != nil {
			s.setState(Disconnected)
			return err
		}
	}

	if err := s.sendJoin(groupID); err != nil {
		s.dropConn()
		return err
	}
	s.setState(Joined)

	// History runs concurrently with live delivery on purpose: a
	// message can arrive on the channel before, during or after the
	// fetch and the merge step absorbs all three cases.
	errs := make(chan error, 1)
	go func() { errs <- s.fetchHistory(ctx, groupID) }()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("failed to fetch history: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Session) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL+"?token="+s.token, nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	go s.readLoop(conn)
	return nil
}

func (s *Session) sendJoin(groupID string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := conn.WriteJSON(wsFrame{Type: "join_group", GroupID: groupID}); err != nil {
		return fmt.Errorf("failed to send join: %w", err)
	}
	return nil
}

// Send submits content through the HTTP write path and returns the
// persisted message. The buffer is NOT updated here: the authoritative
// copy, with the server-assigned id and timestamp, arrives through the
// live channel like everyone else's messages. A failed send changes
// nothing locally, so the caller can retry with the same content.
func (s *Session) Send(ctx context.Context, content string) (*models.Message, error) {
	s.mu.Lock()
	groupID := s.groupID
	s.mu.Unlock()
	if groupID == "" {
		return nil, fmt.Errorf("no group joined")
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/groups/%s/messages", s.baseURL, groupID),
		strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("send rejected with status %d", resp.StatusCode)
	}

	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

func (s *Session) fetchHistory(ctx context.Context, groupID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/groups/%s/messages", s.baseURL, groupID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history fetch rejected with status %d", resp.StatusCode)
	}

	var history []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return err
	}
	for _, msg := range history {
		s.merge(groupID, msg)
	}
	return nil
}

// merge adds a message to the buffer unless one with the same id is
// already there. Dedupe by id is what makes history-plus-live and
// reconnect-refetch safe.
func (s *Session) merge(groupID string, msg models.Message) {
	s.mu.Lock()
	if s.groupID != groupID || msg.ID == "" {
		s.mu.Unlock()
		return
	}
	if _, seen := s.byID[msg.ID]; seen {
		s.mu.Unlock()
		return
	}
	s.byID[msg.ID] = msg
	fn := s.onMessage
	s.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		switch frame.Type {
		case "receive_message":
			if frame.Message != nil {
				s.merge(frame.GroupID, *frame.Message)
			}
		case "error":
			log.Warn().Str("error", frame.Error).Msg("Server reported channel error")
		}
	}
}

// handleDisconnect transparently reconnects: redial, rejoin, and a
// fresh history fetch to recover anything missed during the gap. The
// merge step keeps already-rendered messages from duplicating.
func (s *Session) handleDisconnect(conn *websocket.Conn, cause error) {
	conn.Close()
	s.mu.Lock()
	if s.closed || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = Disconnected
	groupID := s.groupID
	s.mu.Unlock()

	if groupID == "" {
		return
	}
	log.Debug().Err(cause).Msg("Connection lost, reconnecting")

	for {
		time.Sleep(reconnectWait)
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.rejoin(ctx, groupID)
		cancel()
		if err == nil {
			return
		}
		// A half-established attempt leaves a dialed connection behind.
		s.dropConn()
		log.Debug().Err(err).Msg("Reconnect attempt failed")
	}
}

// dropConn closes and detaches the current connection. The detach makes
// the connection's readLoop exit without starting another reconnect.
func (s *Session) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = Disconnected
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Session) rejoin(ctx context.Context, groupID string) error {
	if err := s.dial(ctx); err != nil {
		return err
	}
	if err := s.sendJoin(groupID); err != nil {
		return err
	}
	s.setState(Joined)
	return s.fetchHistory(ctx, groupID)
}

// Messages returns a snapshot of the buffer ordered by creation time
// ascending, ties broken by id for a stable order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	out := make([]models.Message, 0, len(s.byID))
	for _, msg := range s.byID {
		out = append(out, msg)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Close tears the session down. The connection is closed, implicitly
// leaving the joined channel; the session cannot be reused afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = Disconnected
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
