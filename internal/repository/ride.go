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

// RideRepository handles database operations for rides, passengers and
// join requests
type RideRepository struct {
	db *pgxpool.Pool
}

// NewRideRepository creates a new ride repository
func NewRideRepository(db *pgxpool.Pool) *RideRepository {
	return &RideRepository{db: db}
}

// Create inserts the ride and its group in a single transaction. A ride
// never exists without its group channel, so failure of either insert
// rolls back both.
func (r *RideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if ride.Group == nil {
		return fmt.Errorf("ride has no group assigned")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rideQuery := `
		INSERT INTO rides (id, origin, destination, departure_time, arrival_time,
			transport_mode, total_seats, price_per_seat, description,
			gender_preference, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, rideQuery,
		ride.ID, ride.Origin, ride.Destination, ride.DepartureTime, ride.ArrivalTime,
		ride.TransportMode, ride.TotalSeats, ride.PricePerSeat, ride.Description,
		ride.GenderPreference, ride.CreatorID, ride.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	groupQuery := `INSERT INTO groups (id, ride_id, created_at) VALUES ($1, $2, $3)`
	_, err = tx.Exec(ctx, groupQuery, ride.Group.ID, ride.ID, ride.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group for ride: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ride creation: %w", err)
	}
	ride.Group.RideID = ride.ID
	return nil
}

// GetByID retrieves a ride with its creator, passengers, requests and group
func (r *RideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	query := `
		SELECT r.id, r.origin, r.destination, r.departure_time, r.arrival_time,
			r.transport_mode, r.total_seats, r.price_per_seat, r.description,
			r.gender_preference, r.creator_id, r.created_at,
			u.email, u.full_name, u.phone, u.gender, u.avatar,
			g.id, g.created_at
		FROM rides r
		JOIN users u ON u.id = r.creator_id
		JOIN groups g ON g.ride_id = r.id
		WHERE r.id = $1
	`
	var ride models.Ride
	var creator models.Identity
	var group models.Group
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ride.ID, &ride.Origin, &ride.Destination, &ride.DepartureTime, &ride.ArrivalTime,
		&ride.TransportMode, &ride.TotalSeats, &ride.PricePerSeat, &ride.Description,
		&ride.GenderPreference, &ride.CreatorID, &ride.CreatedAt,
		&creator.Email, &creator.FullName, &creator.Phone, &creator.Gender, &creator.Avatar,
		&group.ID, &group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ride: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	creator.ID = ride.CreatorID
	group.RideID = ride.ID
	ride.Creator = &creator
	ride.Group = &group

	if err := r.loadPassengers(ctx, &ride); err != nil {
		return nil, err
	}
	if err := r.loadRequests(ctx, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *RideRepository) loadPassengers(ctx context.Context, ride *models.Ride) error {
	query := `
		SELECT u.id, u.email, u.full_name, u.phone, u.gender, u.avatar
		FROM ride_passengers rp
		JOIN users u ON u.id = rp.user_id
		WHERE rp.ride_id = $1
	`
	rows, err := r.db.Query(ctx, query, ride.ID)
	if err != nil {
		return fmt.Errorf("failed to load passengers: %w", err)
	}
	defer rows.Close()

	ride.Passengers = []models.Identity{}
	for rows.Next() {
		var p models.Identity
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Gender, &p.Avatar); err != nil {
			return fmt.Errorf("failed to scan passenger: %w", err)
		}
		ride.Passengers = append(ride.Passengers, p)
	}
	return rows.Err()
}

func (r *RideRepository) loadRequests(ctx context.Context, ride *models.Ride) error {
	query := `
		SELECT rr.id, rr.user_id, rr.status, rr.created_at,
			u.email, u.full_name, u.phone, u.gender, u.avatar
		FROM ride_requests rr
		JOIN users u ON u.id = rr.user_id
		WHERE rr.ride_id = $1
		ORDER BY rr.created_at
	`
	rows, err := r.db.Query(ctx, query, ride.ID)
	if err != nil {
		return fmt.Errorf("failed to load requests: %w", err)
	}
	defer rows.Close()

	ride.Requests = []models.RideRequest{}
	for rows.Next() {
		var req models.RideRequest
		var user models.Identity
		err := rows.Scan(&req.ID, &req.UserID, &req.Status, &req.CreatedAt,
			&user.Email, &user.FullName, &user.Phone, &user.Gender, &user.Avatar)
		if err != nil {
			return fmt.Errorf("failed to scan request: %w", err)
		}
		req.RideID = ride.ID
		user.ID = req.UserID
		req.User = &user
		ride.Requests = append(ride.Requests, req)
	}
	return rows.Err()
}

// List retrieves all rides ordered by departure time ascending. The
// ride rows come from a single joined query; passengers and requests
// for the whole batch are loaded with one query each.
func (r *RideRepository) List(ctx context.Context) ([]models.Ride, error) {
	query := `
		SELECT r.id, r.origin, r.destination, r.departure_time, r.arrival_time,
			r.transport_mode, r.total_seats, r.price_per_seat, r.description,
			r.gender_preference, r.creator_id, r.created_at,
			u.email, u.full_name, u.phone, u.gender, u.avatar,
			g.id, g.created_at
		FROM rides r
		JOIN users u ON u.id = r.creator_id
		JOIN groups g ON g.ride_id = r.id
		ORDER BY r.departure_time ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	defer rows.Close()

	rides := []models.Ride{}
	index := make(map[string]int)
	for rows.Next() {
		var ride models.Ride
		var creator models.Identity
		var group models.Group
		err := rows.Scan(
			&ride.ID, &ride.Origin, &ride.Destination, &ride.DepartureTime, &ride.ArrivalTime,
			&ride.TransportMode, &ride.TotalSeats, &ride.PricePerSeat, &ride.Description,
			&ride.GenderPreference, &ride.CreatorID, &ride.CreatedAt,
			&creator.Email, &creator.FullName, &creator.Phone, &creator.Gender, &creator.Avatar,
			&group.ID, &group.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		creator.ID = ride.CreatorID
		group.RideID = ride.ID
		ride.Creator = &creator
		ride.Group = &group
		ride.Passengers = []models.Identity{}
		ride.Requests = []models.RideRequest{}
		index[ride.ID] = len(rides)
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rides) == 0 {
		return rides, nil
	}

	ids := make([]string, 0, len(rides))
	for _, ride := range rides {
		ids = append(ids, ride.ID)
	}
	if err := r.loadAllPassengers(ctx, ids, rides, index); err != nil {
		return nil, err
	}
	if err := r.loadAllRequests(ctx, ids, rides, index); err != nil {
		return nil, err
	}
	return rides, nil
}

func (r *RideRepository) loadAllPassengers(ctx context.Context, ids []string, rides []models.Ride, index map[string]int) error {
	query := `
		SELECT rp.ride_id, u.id, u.email, u.full_name, u.phone, u.gender, u.avatar
		FROM ride_passengers rp
		JOIN users u ON u.id = rp.user_id
		WHERE rp.ride_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load passengers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rideID string
		var p models.Identity
		if err := rows.Scan(&rideID, &p.ID, &p.Email, &p.FullName, &p.Phone, &p.Gender, &p.Avatar); err != nil {
			return fmt.Errorf("failed to scan passenger: %w", err)
		}
		if i, ok := index[rideID]; ok {
			rides[i].Passengers = append(rides[i].Passengers, p)
		}
	}
	return rows.Err()
}

func (r *RideRepository) loadAllRequests(ctx context.Context, ids []string, rides []models.Ride, index map[string]int) error {
	query := `
		SELECT rr.ride_id, rr.id, rr.user_id, rr.status, rr.created_at,
			u.email, u.full_name, u.phone, u.gender, u.avatar
		FROM ride_requests rr
		JOIN users u ON u.id = rr.user_id
		WHERE rr.ride_id = ANY($1)
		ORDER BY rr.created_at
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var req models.RideRequest
		var user models.Identity
		err := rows.Scan(&req.RideID, &req.ID, &req.UserID, &req.Status, &req.CreatedAt,
			&user.Email, &user.FullName, &user.Phone, &user.Gender, &user.Avatar)
		if err != nil {
			return fmt.Errorf("failed to scan request: %w", err)
		}
		user.ID = req.UserID
		req.User = &user
		if i, ok := index[req.RideID]; ok {
			rides[i].Requests = append(rides[i].Requests, req)
		}
	}
	return rows.Err()
}

// Update rewrites the mutable ride attributes
func (r *RideRepository) Update(ctx context.Context, ride *models.Ride) error {
	query := `
		UPDATE rides
		SET origin = $2, destination = $3, departure_time = $4, arrival_time = $5,
			transport_mode = $6, total_seats = $7, price_per_seat = $8,
			description = $9, gender_preference = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		ride.ID, ride.Origin, ride.Destination, ride.DepartureTime, ride.ArrivalTime,
		ride.TransportMode, ride.TotalSeats, ride.PricePerSeat,
		ride.Description, ride.GenderPreference,
	)
	if err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ride: %w", ErrNotFound)
	}
	return nil
}

// Delete removes a ride. The group and everything addressed to it
// (messages, expenses, polls) go with it via cascading deletes.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ride: %w", ErrNotFound)
	}
	return nil
}

// RemovePassenger detaches a passenger from a ride
func (r *RideRepository) RemovePassenger(ctx context.Context, rideID, userID string) error {
	query := `DELETE FROM ride_passengers WHERE ride_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, rideID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove passenger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("passenger: %w", ErrNotFound)
	}
	return nil
}

// CreateRequest inserts a new PENDING join request. A second PENDING
// request for the same (ride, user) pair violates a partial unique index
// and is reported as ErrDuplicate.
func (r *RideRepository) CreateRequest(ctx context.Context, req *models.RideRequest) error {
	query := `
		INSERT INTO ride_requests (id, ride_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.RideID, req.UserID, req.Status, req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("pending request: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetRequest retrieves a single join request by ID
func (r *RideRepository) GetRequest(ctx context.Context, requestID string) (*models.RideRequest, error) {
	query := `SELECT id, ride_id, user_id, status, created_at FROM ride_requests WHERE id = $1`
	var req models.RideRequest
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&req.ID, &req.RideID, &req.UserID, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// ResolveRequest transitions a PENDING request to ACCEPTED or REJECTED.
// Accepting also connects the requester as a passenger, in the same
// transaction so membership can never half-apply.
func (r *RideRepository) ResolveRequest(ctx context.Context, requestID, status string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rideID, userID string
	query := `
		UPDATE ride_requests SET status = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ride_id, user_id
	`
	err = tx.QueryRow(ctx, query, requestID, status).Scan(&rideID, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("pending request: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to resolve request: %w", err)
	}

	if status == models.RequestAccepted {
		passengerQuery := `
			INSERT INTO ride_passengers (ride_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.Exec(ctx, passengerQuery, rideID, userID); err != nil {
			return fmt.Errorf("failed to connect passenger: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit request resolution: %w", err)
	}
	return nil
}
