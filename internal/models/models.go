package models

import "time"

// Ride request status values.
const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestRejected = "REJECTED"
)

// Expense split types.
const (
	SplitEqual      = "EQUAL"
	SplitPercentage = "PERCENTAGE"
	SplitExact      = "EXACT"
)

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Avatar       *string   `json:"avatar,omitempty"`
	DeviceToken  *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sender is the subset of user fields embedded in a message
type Sender struct {
	ID       string  `json:"id"`
	FullName string  `json:"fullName"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Ride represents one proposed shared trip
type Ride struct {
	ID               string        `json:"id"`
	Origin           string        `json:"origin"`
	Destination      string        `json:"destination"`
	DepartureTime    time.Time     `json:"departureTime"`
	ArrivalTime      *time.Time    `json:"arrivalTime,omitempty"`
	TransportMode    string        `json:"transportMode"`
	TotalSeats       int           `json:"totalSeats"`
	PricePerSeat     float64       `json:"pricePerSeat"`
	Description      string        `json:"description,omitempty"`
	GenderPreference string        `json:"genderPreference,omitempty"`
	CreatorID        string        `json:"creatorId"`
	Creator          *Identity     `json:"creator,omitempty"`
	Passengers       []Identity    `json:"passengers"`
	Requests         []RideRequest `json:"requests"`
	Group            *Group        `json:"group,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// RideRequest is a request to join a ride, resolved by the ride's creator
type RideRequest struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	User      *Identity `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Group is the 1:1 messaging/expense/poll channel bound to a ride
type Group struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one chat message in a group, immutable once created
type Message struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Sender    *Sender   `json:"sender,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expense is a shared cost recorded against a group
type Expense struct {
	ID           string             `json:"id"`
	GroupID      string             `json:"groupId"`
	PayerID      string             `json:"payerId"`
	Amount       float64            `json:"amount"`
	Description  string             `json:"description"`
	SplitType    string             `json:"type"`
	SplitDetails map[string]float64 `json:"splitDetails"`
	Settled      bool               `json:"settled"`
	Payer        *Sender            `json:"payer,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Poll is a question put to a group
type Poll struct {
	ID        string       `json:"id"`
	GroupID   string       `json:"groupId"`
	CreatorID string       `json:"creatorId"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	Creator   *Sender      `json:"creator,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PollOption is one votable answer on a poll
type PollOption struct {
	ID     string `json:"id"`
	PollID string `json:"pollId"`
	Text   string `json:"text"`
	Votes  int    `json:"votes"`
}
