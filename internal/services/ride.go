package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RideService handles ride lifecycle, join requests and the passenger
// relation. Every ride gets its group channel at creation time.
type RideService struct {
	rides repository.RideStore
}

// NewRideService creates a new ride service
func NewRideService(rides repository.RideStore) *RideService {
	return &RideService{rides: rides}
}

// RideInput carries the mutable ride attributes
type RideInput struct {
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	DepartureTime    time.Time  `json:"departureTime"`
	ArrivalTime      *time.Time `json:"arrivalTime,omitempty"`
	TransportMode    string     `json:"transportMode"`
	TotalSeats       int        `json:"totalSeats"`
	PricePerSeat     float64    `json:"pricePerSeat"`
	Description      string     `json:"description"`
	GenderPreference string     `json:"genderPreference"`
}

func (in *RideInput) validate() error {
	switch {
	case strings.TrimSpace(in.Origin) == "":
		return fmt.Errorf("start point is required: %w", ErrValidation)
	case strings.TrimSpace(in.Destination) == "":
		return fmt.Errorf("end point is required: %w", ErrValidation)
	case strings.TrimSpace(in.TransportMode) == "":
		return fmt.Errorf("transport mode is required: %w", ErrValidation)
	case in.DepartureTime.IsZero():
		return fmt.Errorf("departure time is required: %w", ErrValidation)
	case in.TotalSeats < 1 || in.TotalSeats > 20:
		return fmt.Errorf("total seats must be between 1 and 20: %w", ErrValidation)
	case in.PricePerSeat < 0:
		return fmt.Errorf("price per seat cannot be negative: %w", ErrValidation)
	}
	return nil
}

// Create inserts a new ride together with its group channel. The two are
// created in one unit of work: a ride without a channel, or a channel
// without a ride, can never exist.
func (s *RideService) Create(ctx context.Context, creatorID string, in RideInput) (*models.Ride, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ride := &models.Ride{
		ID:               uuid.New().String(),
		Origin:           strings.TrimSpace(in.Origin),
		Destination:      strings.TrimSpace(in.Destination),
		DepartureTime:    in.DepartureTime,
		ArrivalTime:      in.ArrivalTime,
		TransportMode:    in.TransportMode,
		TotalSeats:       in.TotalSeats,
		PricePerSeat:     in.PricePerSeat,
		Description:      in.Description,
		GenderPreference: in.GenderPreference,
		CreatorID:        creatorID,
		CreatedAt:        now,
		Group: &models.Group{
			ID:        uuid.New().String(),
			CreatedAt: now,
		},
	}
	if ride.GenderPreference == "" {
		ride.GenderPreference = "Any"
	}

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	log.Info().Str("ride_id", ride.ID).Str("group_id", ride.Group.ID).Msg("Ride created")
	return s.rides.GetByID(ctx, ride.ID)
}

// Get retrieves one ride with its full snapshot
func (s *RideService) Get(ctx context.Context, rideID string) (*models.Ride, error) {
	return s.rides.GetByID(ctx, rideID)
}

// List retrieves all rides ordered by departure time
func (s *RideService) List(ctx context.Context) ([]models.Ride, error) {
	return s.rides.List(ctx)
}

// Update rewrites a ride's attributes. Only the creator may update.
func (s *RideService) Update(ctx context.Context, rideID, userID string, in RideInput) (*models.Ride, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.CreatorID != userID {
		return nil, fmt.Errorf("only the creator can update a ride: %w", ErrForbidden)
	}

	ride.Origin = strings.TrimSpace(in.Origin)
	ride.Destination = strings.TrimSpace(in.Destination)
	ride.DepartureTime = in.DepartureTime
	ride.ArrivalTime = in.ArrivalTime
	ride.TransportMode = in.TransportMode
	ride.TotalSeats = in.TotalSeats
	ride.PricePerSeat = in.PricePerSeat
	ride.Description = in.Description
	if in.GenderPreference != "" {
		ride.GenderPreference = in.GenderPreference
	}

	if err := s.rides.Update(ctx, ride); err != nil {
		return nil, err
	}
	return s.rides.GetByID(ctx, rideID)
}

// Delete removes a ride and, through it, its group and all messages,
// expenses and polls addressed to that group. Only the creator may
// delete.
func (s *RideService) Delete(ctx context.Context, rideID, userID string) error {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.CreatorID != userID {
		return fmt.Errorf("only the creator can delete a ride: %w", ErrForbidden)
	}
	if err := s.rides.Delete(ctx, rideID); err != nil {
		return err
	}
	log.Info().Str("ride_id", rideID).Msg("Ride deleted")
	return nil
}

// Join files a PENDING request to join the ride. At most one pending
// request per (ride, user) pair may exist at a time.
func (s *RideService) Join(ctx context.Context, rideID, userID string) (*models.RideRequest, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.CreatorID == userID {
		return nil, fmt.Errorf("you cannot join your own ride: %w", ErrValidation)
	}
	for _, p := range ride.Passengers {
		if p.ID == userID {
			return nil, fmt.Errorf("you are already a passenger: %w", ErrValidation)
		}
	}

	req := &models.RideRequest{
		ID:        uuid.New().String(),
		RideID:    rideID,
		UserID:    userID,
		Status:    models.RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.rides.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Respond resolves a pending request. Only the ride's creator may
// respond; accepting connects the requester as a passenger in the same
// unit of work.
func (s *RideService) Respond(ctx context.Context, rideID, requestID, userID, status string) (*models.RideRequest, error) {
	if status != models.RequestAccepted && status != models.RequestRejected {
		return nil, fmt.Errorf("status must be ACCEPTED or REJECTED: %w", ErrValidation)
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.CreatorID != userID {
		return nil, fmt.Errorf("only the creator can respond to requests: %w", ErrForbidden)
	}

	req, err := s.rides.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RideID != rideID {
		return nil, fmt.Errorf("request: %w", repository.ErrNotFound)
	}

	if err := s.rides.ResolveRequest(ctx, requestID, status); err != nil {
		return nil, err
	}
	req.Status = status
	log.Info().Str("ride_id", rideID).Str("request_id", requestID).Str("status", status).Msg("Join request resolved")
	return req, nil
}

// Leave detaches the calling user from the ride's passengers. The
// creator cannot leave; they must delete the ride instead.
func (s *RideService) Leave(ctx context.Context, rideID, userID string) error {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.CreatorID == userID {
		return fmt.Errorf("creators cannot leave the ride, delete it instead: %w", ErrValidation)
	}
	if err := s.rides.RemovePassenger(ctx, rideID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("you are not a passenger in this ride: %w", ErrValidation)
		}
		return err
	}
	return nil
}
