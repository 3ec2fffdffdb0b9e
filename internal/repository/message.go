package repository

import (
	"context"
	"fmt"

	"ridezon-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles the append-only message log
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message. The creation timestamp is assigned by the
// database so the log order is the order of successful inserts, not
// whatever the client claims.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, group_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, msg.ID, msg.GroupID, msg.SenderID, msg.Content).
		Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByGroup retrieves all messages for a group ordered by creation time
// ascending, with sender display fields hydrated.
func (r *MessageRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Message, error) {
	query := `
		SELECT m.id, m.group_id, m.sender_id, m.content, m.created_at,
			u.full_name, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.group_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var sender models.Sender
		err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Content, &msg.CreatedAt,
			&sender.FullName, &sender.Avatar)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		sender.ID = msg.SenderID
		msg.Sender = &sender
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
