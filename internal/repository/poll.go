package repository

import (
	"context"
	"errors"
	"fmt"

	"ridezon-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PollRepository handles database operations for group polls
type PollRepository struct {
	db *pgxpool.Pool
}

// NewPollRepository creates a new poll repository
func NewPollRepository(db *pgxpool.Pool) *PollRepository {
	return &PollRepository{db: db}
}

// Create persists a poll and its options in one transaction
func (r *PollRepository) Create(ctx context.Context, poll *models.Poll) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pollQuery := `
		INSERT INTO polls (id, group_id, creator_id, question)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, pollQuery, poll.ID, poll.GroupID, poll.CreatorID, poll.Question).
		Scan(&poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	optionQuery := `INSERT INTO poll_options (id, poll_id, text) VALUES ($1, $2, $3)`
	for i := range poll.Options {
		poll.Options[i].PollID = poll.ID
		if _, err := tx.Exec(ctx, optionQuery, poll.Options[i].ID, poll.ID, poll.Options[i].Text); err != nil {
			return fmt.Errorf("failed to create poll option: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit poll creation: %w", err)
	}
	return nil
}

// GetByID retrieves a poll with its options and vote counts
func (r *PollRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	query := `SELECT id, group_id, creator_id, question, created_at FROM polls WHERE id = $1`
	var poll models.Poll
	err := r.db.QueryRow(ctx, query, id).Scan(
		&poll.ID, &poll.GroupID, &poll.CreatorID, &poll.Question, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("poll: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	if err := r.loadOptions(ctx, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *PollRepository) loadOptions(ctx context.Context, poll *models.Poll) error {
	query := `
		SELECT o.id, o.text, COUNT(v.user_id)
		FROM poll_options o
		LEFT JOIN poll_votes v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.text
		ORDER BY o.id
	`
	rows, err := r.db.Query(ctx, query, poll.ID)
	if err != nil {
		return fmt.Errorf("failed to load poll options: %w", err)
	}
	defer rows.Close()

	poll.Options = []models.PollOption{}
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.Text, &opt.Votes); err != nil {
			return fmt.Errorf("failed to scan poll option: %w", err)
		}
		opt.PollID = poll.ID
		poll.Options = append(poll.Options, opt)
	}
	return rows.Err()
}

// ListByGroup retrieves a group's polls, newest first
func (r *PollRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Poll, error) {
	query := `
		SELECT p.id, p.group_id, p.creator_id, p.question, p.created_at, u.full_name, u.avatar
		FROM polls p
		JOIN users u ON u.id = p.creator_id
		WHERE p.group_id = $1
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		var poll models.Poll
		var creator models.Sender
		err := rows.Scan(&poll.ID, &poll.GroupID, &poll.CreatorID, &poll.Question,
			&poll.CreatedAt, &creator.FullName, &creator.Avatar)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		creator.ID = poll.CreatorID
		poll.Creator = &creator
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		if err := r.loadOptions(ctx, &polls[i]); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// Vote records a user's vote. One vote per user per poll; voting again
// moves the vote to the new option.
func (r *PollRepository) Vote(ctx context.Context, pollID, optionID, userID string) error {
	query := `
		INSERT INTO poll_votes (poll_id, option_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, user_id) DO UPDATE SET option_id = EXCLUDED.option_id
	`
	if _, err := r.db.Exec(ctx, query, pollID, optionID, userID); err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}
