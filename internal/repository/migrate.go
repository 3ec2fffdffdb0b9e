package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT UNIQUE NOT NULL,
	password_hash TEXT,
	full_name     TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	gender        TEXT NOT NULL DEFAULT '',
	avatar        TEXT,
	device_token  TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rides (
	id                UUID PRIMARY KEY,
	origin            TEXT NOT NULL,
	destination       TEXT NOT NULL,
	departure_time    TIMESTAMPTZ NOT NULL,
	arrival_time      TIMESTAMPTZ,
	transport_mode    TEXT NOT NULL,
	total_seats       INT NOT NULL,
	price_per_seat    DOUBLE PRECISION NOT NULL DEFAULT 0,
	description       TEXT NOT NULL DEFAULT '',
	gender_preference TEXT NOT NULL DEFAULT 'Any',
	creator_id        UUID NOT NULL REFERENCES users(id),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ride_passengers (
	ride_id UUID NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (ride_id, user_id)
);

CREATE TABLE IF NOT EXISTS ride_requests (
	id         UUID PRIMARY KEY,
	ride_id    UUID NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS ride_requests_one_pending
	ON ride_requests (ride_id, user_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS groups (
	id         UUID PRIMARY KEY,
	ride_id    UUID UNIQUE NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id         UUID PRIMARY KEY,
	group_id   UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	sender_id  UUID NOT NULL REFERENCES users(id),
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS messages_group_order
	ON messages (group_id, created_at, id);

CREATE TABLE IF NOT EXISTS expenses (
	id            UUID PRIMARY KEY,
	group_id      UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	payer_id      UUID NOT NULL REFERENCES users(id),
	amount        DOUBLE PRECISION NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	split_type    TEXT NOT NULL DEFAULT 'EQUAL',
	split_details JSONB NOT NULL DEFAULT '{}',
	settled       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS polls (
	id         UUID PRIMARY KEY,
	group_id   UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	creator_id UUID NOT NULL REFERENCES users(id),
	question   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS poll_options (
	id      UUID PRIMARY KEY,
	poll_id UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
	text    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS poll_votes (
	poll_id   UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
	option_id UUID NOT NULL REFERENCES poll_options(id) ON DELETE CASCADE,
	user_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (poll_id, user_id)
);
`

// Migrate applies the schema. Statements are idempotent, so running it on
// every startup is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Msg("Database schema up to date")
	return nil
}
