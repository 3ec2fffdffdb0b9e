package services

import (
	"context"
	"fmt"
	"strings"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/google/uuid"
)

// Broadcaster delivers a persisted message to the group's live channel
type Broadcaster interface {
	Broadcast(groupID string, msg *models.Message)
	ConnectedUserIDs(groupID string) map[string]bool
}

// Notifier pushes a new-message alert to users without a live connection
type Notifier interface {
	NotifyOffline(ctx context.Context, userIDs []string, msg *models.Message)
}

// ChatService is the message store and delivery pipeline: the write path
// persists first and publishes only after the insert succeeded, so the
// durable log is always a superset of what was ever broadcast.
type ChatService struct {
	messages repository.MessageStore
	groups   repository.GroupStore
	rides    repository.RideStore
	users    repository.UserStore
	hub      Broadcaster
	push     Notifier
}

// NewChatService creates a new chat service. push may be nil.
func NewChatService(
	messages repository.MessageStore,
	groups repository.GroupStore,
	rides repository.RideStore,
	users repository.UserStore,
	hub Broadcaster,
	push Notifier,
) *ChatService {
	return &ChatService{
		messages: messages,
		groups:   groups,
		rides:    rides,
		users:    users,
		hub:      hub,
		push:     push,
	}
}

// Send persists a message to the group's log and then fans it out. The
// sender must be a member of the ride's group. On any persistence
// failure nothing is published and the error is returned as-is; the
// caller retries explicitly, the pipeline never does.
func (s *ChatService) Send(ctx context.Context, groupID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is empty: %w", ErrValidation)
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ride, sender, err := s.authorize(ctx, group, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:       uuid.New().String(),
		GroupID:  group.ID,
		SenderID: sender.ID,
		Content:  content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	msg.Sender = &models.Sender{
		ID:       sender.ID,
		FullName: sender.FullName,
		Avatar:   sender.Avatar,
	}

	s.hub.Broadcast(group.ID, msg)

	if s.push != nil {
		connected := s.hub.ConnectedUserIDs(group.ID)
		var offline []string
		for _, id := range memberUserIDs(ride) {
			if id != sender.ID && !connected[id] {
				offline = append(offline, id)
			}
		}
		if len(offline) > 0 {
			go s.push.NotifyOffline(context.WithoutCancel(ctx), offline, msg)
		}
	}

	return msg, nil
}

// History returns the full persisted log for a group, oldest first. The
// caller must be a member of the ride's group.
func (s *ChatService) History(ctx context.Context, groupID, userID string) ([]models.Message, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, group, userID); err != nil {
		return nil, err
	}
	return s.messages.ListByGroup(ctx, group.ID)
}

// AuthorizeMember verifies that the user currently belongs to the
// group's ride. Used by the chat paths and by the other group-scoped
// services (expenses, polls, channel joins).
func (s *ChatService) AuthorizeMember(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, group, userID); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *ChatService) authorize(ctx context.Context, group *models.Group, userID string) (*models.Ride, *models.User, error) {
	ride, err := s.rides.GetByID(ctx, group.RideID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !IsMember(models.IdentityFromUser(user), ride) {
		return nil, nil, ErrForbidden
	}
	return ride, user, nil
}

// memberUserIDs collects the ids of everyone in the ride's group that
// the snapshot can name: creator, passengers and accepted requesters.
func memberUserIDs(ride *models.Ride) []string {
	seen := map[string]bool{ride.CreatorID: true}
	ids := []string{ride.CreatorID}
	for _, p := range ride.Passengers {
		if p.ID != "" && !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}
	for _, req := range ride.Requests {
		if req.Status == models.RequestAccepted && req.UserID != "" && !seen[req.UserID] {
			seen[req.UserID] = true
			ids = append(ids, req.UserID)
		}
	}
	return ids
}
