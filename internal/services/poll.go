package services

import (
	"context"
	"fmt"
	"strings"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/google/uuid"
)

// PollService lets group members put questions to the group and vote
type PollService struct {
	polls repository.PollStore
	chat  *ChatService
}

// NewPollService creates a new poll service
func NewPollService(polls repository.PollStore, chat *ChatService) *PollService {
	return &PollService{polls: polls, chat: chat}
}

// Create records a poll with its options. A poll needs a question and at
// least two options.
func (s *PollService) Create(ctx context.Context, groupID, creatorID, question string, options []string) (*models.Poll, error) {
	group, err := s.chat.AuthorizeMember(ctx, groupID, creatorID)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required: %w", ErrValidation)
	}
	var cleaned []string
	for _, opt := range options {
		if opt = strings.TrimSpace(opt); opt != "" {
			cleaned = append(cleaned, opt)
		}
	}
	if len(cleaned) < 2 {
		return nil, fmt.Errorf("a poll must have at least 2 options: %w", ErrValidation)
	}

	poll := &models.Poll{
		ID:        uuid.New().String(),
		GroupID:   group.ID,
		CreatorID: creatorID,
		Question:  question,
	}
	for _, opt := range cleaned {
		poll.Options = append(poll.Options, models.PollOption{
			ID:   uuid.New().String(),
			Text: opt,
		})
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// List returns a group's polls with vote counts, newest first
func (s *PollService) List(ctx context.Context, groupID, userID string) ([]models.Poll, error) {
	group, err := s.chat.AuthorizeMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return s.polls.ListByGroup(ctx, group.ID)
}

// Vote records the user's vote on a poll option. One vote per user per
// poll; voting again moves the vote.
func (s *PollService) Vote(ctx context.Context, pollID, optionID, userID string) (*models.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chat.AuthorizeMember(ctx, poll.GroupID, userID); err != nil {
		return nil, err
	}

	valid := false
	for _, opt := range poll.Options {
		if opt.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("option: %w", repository.ErrNotFound)
	}

	if err := s.polls.Vote(ctx, pollID, optionID, userID); err != nil {
		return nil, err
	}
	return s.polls.GetByID(ctx, pollID)
}
