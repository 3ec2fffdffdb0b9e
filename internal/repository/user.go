package repository

import (
	"context"
	"errors"
	"fmt"

	"ridezon-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, gender, avatar, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, nilIfEmpty(user.PasswordHash), user.FullName,
		user.Phone, user.Gender, user.Avatar, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email", email)
}

func (r *UserRepository) get(ctx context.Context, column, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, COALESCE(password_hash, ''), full_name, phone, gender, avatar, device_token, created_at
		FROM users
		WHERE %s = $1
	`, column)
	var user models.User
	err := r.db.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Phone, &user.Gender, &user.Avatar, &user.DeviceToken, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile sets the profile completion fields
func (r *UserRepository) UpdateProfile(ctx context.Context, id, phone, gender string) error {
	query := `UPDATE users SET phone = $2, gender = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, phone, gender)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// UpdateAvatar records the avatar URL for a user
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET avatar = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, avatarURL)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// UpdateDeviceToken records the APNs device token for a user
func (r *UserRepository) UpdateDeviceToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET device_token = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("failed to update device token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// DeviceTokensByIDs returns the registered device tokens for the given users.
// Users without a token are absent from the result.
func (r *UserRepository) DeviceTokensByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	query := `SELECT id, device_token FROM users WHERE id = ANY($1) AND device_token IS NOT NULL`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	tokens := make(map[string]string)
	for rows.Next() {
		var id, token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens[id] = token
	}
	return tokens, rows.Err()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
