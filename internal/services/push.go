package services

import (
	"context"
	"fmt"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// PushService sends best-effort APNs notifications to group members who
// are not currently connected to the group's channel. Failures are
// logged and never surfaced to the sender.
type PushService struct {
	users  repository.UserStore
	client *apns2.Client
	topic  string
}

// NewPushService loads the APNs certificate and creates a push client
func NewPushService(users repository.UserStore, certFile, certPassword, topic string, production bool) (*PushService, error) {
	cert, err := certificate.FromP12File(certFile, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushService{users: users, client: client, topic: topic}, nil
}

// NotifyOffline pushes a new-message alert to every listed user that has
// a registered device token
func (s *PushService) NotifyOffline(ctx context.Context, userIDs []string, msg *models.Message) {
	tokens, err := s.users.DeviceTokensByIDs(ctx, userIDs)
	if err != nil {
		log.Error().Err(err).Str("group_id", msg.GroupID).Msg("Failed to load device tokens for push")
		return
	}

	senderName := msg.SenderID
	if msg.Sender != nil {
		senderName = msg.Sender.FullName
	}

	for userID, token := range tokens {
		notification := &apns2.Notification{
			DeviceToken: token,
			Topic:       s.topic,
			Payload: payload.NewPayload().
				AlertTitle(senderName).
				AlertBody(msg.Content).
				Custom("group_id", msg.GroupID).
				Badge(1),
		}
		res, err := s.client.Push(notification)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send push notification")
			continue
		}
		if !res.Sent() {
			log.Warn().Str("user_id", userID).Str("reason", res.Reason).Msg("Push notification rejected")
		}
	}
}
