package repository

import (
	"context"
	"errors"

	"ridezon-backend/internal/models"
)

// Sentinel errors shared by all repository implementations.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, phone, gender string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateDeviceToken(ctx context.Context, id, token string) error
	DeviceTokensByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// RideStore persists rides, their passengers and join requests.
// Create inserts the ride and its group in one transaction.
type RideStore interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	List(ctx context.Context) ([]models.Ride, error)
	Update(ctx context.Context, ride *models.Ride) error
	Delete(ctx context.Context, id string) error
	RemovePassenger(ctx context.Context, rideID, userID string) error
	CreateRequest(ctx context.Context, req *models.RideRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.RideRequest, error)
	ResolveRequest(ctx context.Context, requestID, status string) error
}

// GroupStore resolves group channels
type GroupStore interface {
	GetByID(ctx context.Context, id string) (*models.Group, error)
	GetByRideID(ctx context.Context, rideID string) (*models.Group, error)
}

// MessageStore persists the append-only message log per group
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByGroup(ctx context.Context, groupID string) ([]models.Message, error)
}

// ExpenseStore persists group expenses
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Expense, error)
	MarkSettled(ctx context.Context, id string) error
}

// PollStore persists group polls, options and votes
type PollStore interface {
	Create(ctx context.Context, poll *models.Poll) error
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Poll, error)
	Vote(ctx context.Context, pollID, optionID, userID string) error
}
