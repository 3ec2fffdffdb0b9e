package repository

import (
	"context"
	"errors"
	"fmt"

	"ridezon-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupRepository resolves group channels. Groups are only ever created
// inside RideRepository.Create, as part of the ride's transaction.
type GroupRepository struct {
	db *pgxpool.Pool
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT id, ride_id, created_at FROM groups WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByRideID retrieves the group bound to a ride
func (r *GroupRepository) GetByRideID(ctx context.Context, rideID string) (*models.Group, error) {
	query := `SELECT id, ride_id, created_at FROM groups WHERE ride_id = $1`
	return r.get(ctx, query, rideID)
}

func (r *GroupRepository) get(ctx context.Context, query, arg string) (*models.Group, error) {
	var group models.Group
	err := r.db.QueryRow(ctx, query, arg).Scan(&group.ID, &group.RideID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("group: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}
