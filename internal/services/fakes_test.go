package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"
)

// memStore is an in-memory implementation of the repository interfaces
// used by the service tests. It mirrors the database's behavior where
// the services depend on it: duplicate detection, pending-request
// uniqueness, cascading delete and server-assigned timestamps.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	rides    map[string]*models.Ride
	requests map[string]*models.RideRequest
	messages map[string][]models.Message
	expenses map[string]*models.Expense
	polls    map[string]*models.Poll
	votes    map[string]map[string]string

	clock time.Time

	failCreateMessage error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*models.User),
		rides:    make(map[string]*models.Ride),
		requests: make(map[string]*models.RideRequest),
		messages: make(map[string][]models.Message),
		expenses: make(map[string]*models.Expense),
		polls:    make(map[string]*models.Poll),
		votes:    make(map[string]map[string]string),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp, standing in for the
// database clock.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// UserStore

func (m *memStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("email: %w", repository.ErrDuplicate)
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

func (m *memStore) UpdateProfile(ctx context.Context, id, phone, gender string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	u.Phone = phone
	u.Gender = gender
	return nil
}

func (m *memStore) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	u.Avatar = &avatarURL
	return nil
}

func (m *memStore) UpdateDeviceToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	u.DeviceToken = &token
	return nil
}

func (m *memStore) DeviceTokensByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make(map[string]string)
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.DeviceToken != nil {
			tokens[id] = *u.DeviceToken
		}
	}
	return tokens, nil
}

// rideStore adapts memStore to repository.RideStore. A separate type is
// needed because RideStore and UserStore both declare Create and
// GetByID.
type rideStore struct{ *memStore }

func (m rideStore) Create(ctx context.Context, ride *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	if cp.Group != nil {
		g := *cp.Group
		g.RideID = cp.ID
		cp.Group = &g
	}
	m.rides[cp.ID] = &cp
	return nil
}

func (m rideStore) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rideLocked(id)
}

func (m rideStore) rideLocked(id string) (*models.Ride, error) {
	r, ok := m.rides[id]
	if !ok {
		return nil, fmt.Errorf("ride: %w", repository.ErrNotFound)
	}
	cp := *r
	if u, ok := m.users[cp.CreatorID]; ok {
		ident := models.IdentityFromUser(u)
		cp.Creator = &ident
	}
	cp.Passengers = append([]models.Identity(nil), r.Passengers...)
	cp.Requests = append([]models.RideRequest(nil), r.Requests...)
	return &cp, nil
}

func (m rideStore) List(ctx context.Context) ([]models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ride
	for id := range m.rides {
		r, _ := m.rideLocked(id)
		out = append(out, *r)
	}
	return out, nil
}

func (m rideStore) Update(ctx context.Context, ride *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return fmt.Errorf("ride: %w", repository.ErrNotFound)
	}
	cp := *ride
	cp.Group = stored.Group
	cp.Passengers = stored.Passengers
	cp.Requests = stored.Requests
	m.rides[ride.ID] = &cp
	return nil
}

func (m rideStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return fmt.Errorf("ride: %w", repository.ErrNotFound)
	}
	if r.Group != nil {
		delete(m.messages, r.Group.ID)
	}
	delete(m.rides, id)
	return nil
}

func (m rideStore) RemovePassenger(ctx context.Context, rideID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return fmt.Errorf("ride: %w", repository.ErrNotFound)
	}
	for i, p := range r.Passengers {
		if p.ID == userID {
			r.Passengers = append(r.Passengers[:i], r.Passengers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("passenger: %w", repository.ErrNotFound)
}

func (m rideStore) CreateRequest(ctx context.Context, req *models.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[req.RideID]
	if !ok {
		return fmt.Errorf("ride: %w", repository.ErrNotFound)
	}
	for _, existing := range r.Requests {
		if existing.UserID == req.UserID && existing.Status == models.RequestPending {
			return fmt.Errorf("request: %w", repository.ErrDuplicate)
		}
	}
	cp := *req
	r.Requests = append(r.Requests, cp)
	m.requests[req.ID] = &cp
	return nil
}

func (m rideStore) GetRequest(ctx context.Context, requestID string) (*models.RideRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request: %w", repository.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (m rideStore) ResolveRequest(ctx context.Context, requestID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != models.RequestPending {
		return fmt.Errorf("pending request: %w", repository.ErrNotFound)
	}
	req.Status = status
	r := m.rides[req.RideID]
	for i := range r.Requests {
		if r.Requests[i].ID == requestID {
			r.Requests[i].Status = status
		}
	}
	if status == models.RequestAccepted {
		if u, ok := m.users[req.UserID]; ok {
			r.Passengers = append(r.Passengers, models.IdentityFromUser(u))
		} else {
			r.Passengers = append(r.Passengers, models.Identity{ID: req.UserID})
		}
	}
	return nil
}

// groupStore adapts memStore to repository.GroupStore
type groupStore struct{ *memStore }

func (m groupStore) GetByID(ctx context.Context, id string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.Group != nil && r.Group.ID == id {
			cp := *r.Group
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("group: %w", repository.ErrNotFound)
}

func (m groupStore) GetByRideID(ctx context.Context, rideID string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok || r.Group == nil {
		return nil, fmt.Errorf("group: %w", repository.ErrNotFound)
	}
	cp := *r.Group
	return &cp, nil
}

// messageStore adapts memStore to repository.MessageStore
type messageStore struct{ *memStore }

func (m messageStore) Create(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateMessage != nil {
		return m.failCreateMessage
	}
	msg.CreatedAt = m.tick()
	cp := *msg
	cp.Sender = nil
	m.messages[msg.GroupID] = append(m.messages[msg.GroupID], cp)
	return nil
}

func (m messageStore) ListByGroup(ctx context.Context, groupID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Message, len(m.messages[groupID]))
	copy(out, m.messages[groupID])
	for i := range out {
		if u, ok := m.users[out[i].SenderID]; ok {
			out[i].Sender = &models.Sender{ID: u.ID, FullName: u.FullName, Avatar: u.Avatar}
		}
	}
	return out, nil
}

// expenseStore adapts memStore to repository.ExpenseStore
type expenseStore struct{ *memStore }

func (m expenseStore) Create(ctx context.Context, expense *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expense.CreatedAt = m.tick()
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m expenseStore) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense: %w", repository.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m expenseStore) ListByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Expense
	for _, e := range m.expenses {
		if e.GroupID == groupID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m expenseStore) MarkSettled(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("expense: %w", repository.ErrNotFound)
	}
	e.Settled = true
	return nil
}

// pollStore adapts memStore to repository.PollStore
type pollStore struct{ *memStore }

func (m pollStore) Create(ctx context.Context, poll *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll.CreatedAt = m.tick()
	cp := *poll
	cp.Options = append([]models.PollOption(nil), poll.Options...)
	m.polls[poll.ID] = &cp
	m.votes[poll.ID] = make(map[string]string)
	return nil
}

func (m pollStore) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return nil, fmt.Errorf("poll: %w", repository.ErrNotFound)
	}
	return m.pollWithVotesLocked(p), nil
}

func (m pollStore) pollWithVotesLocked(p *models.Poll) *models.Poll {
	cp := *p
	cp.Options = append([]models.PollOption(nil), p.Options...)
	for i := range cp.Options {
		count := 0
		for _, optionID := range m.votes[p.ID] {
			if optionID == cp.Options[i].ID {
				count++
			}
		}
		cp.Options[i].Votes = count
	}
	return &cp
}

func (m pollStore) ListByGroup(ctx context.Context, groupID string) ([]models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Poll
	for _, p := range m.polls {
		if p.GroupID == groupID {
			out = append(out, *m.pollWithVotesLocked(p))
		}
	}
	return out, nil
}

func (m pollStore) Vote(ctx context.Context, pollID, optionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.polls[pollID]; !ok {
		return fmt.Errorf("poll: %w", repository.ErrNotFound)
	}
	m.votes[pollID][userID] = optionID
	return nil
}

// recordingHub captures broadcasts instead of delivering them
type recordingHub struct {
	mu         sync.Mutex
	broadcasts []broadcastEvent
	connected  map[string]bool
}

type broadcastEvent struct {
	groupID string
	msg     *models.Message
}

func (h *recordingHub) Broadcast(groupID string, msg *models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *msg
	h.broadcasts = append(h.broadcasts, broadcastEvent{groupID: groupID, msg: &cp})
}

func (h *recordingHub) ConnectedUserIDs(groupID string) map[string]bool {
	if h.connected == nil {
		return map[string]bool{}
	}
	return h.connected
}

func (h *recordingHub) events() []broadcastEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]broadcastEvent(nil), h.broadcasts...)
}

// recordingNotifier captures offline push targets. Notifications are
// dispatched on a goroutine, so deliveries are reported on a channel.
type recordingNotifier struct {
	deliveries chan []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{deliveries: make(chan []string, 8)}
}

func (n *recordingNotifier) NotifyOffline(ctx context.Context, userIDs []string, msg *models.Message) {
	n.deliveries <- append([]string(nil), userIDs...)
}

// fixture wires a ChatService over the in-memory stores with three
// users: a ride creator, an accepted passenger and an outsider.
type fixture struct {
	store     *memStore
	hub       *recordingHub
	chat      *ChatService
	rides     *RideService
	groupID   string
	rideID    string
	creator   *models.User
	passenger *models.User
	outsider  *models.User
}

func newFixture(t interface{ Fatalf(string, ...interface{}) }) *fixture {
	store := newMemStore()
	hub := &recordingHub{}
	ctx := context.Background()

	creator := &models.User{ID: "u-creator", Email: "amina@example.com", FullName: "Amina Yusuf", Phone: "+2348012345678"}
	passenger := &models.User{ID: "u-passenger", Email: "tunde@example.com", FullName: "Tunde Bakare"}
	outsider := &models.User{ID: "u-outsider", Email: "kemi@example.com", FullName: "Kemi Adeyemi"}
	for _, u := range []*models.User{creator, passenger, outsider} {
		if err := store.Create(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}

	rides := NewRideService(rideStore{store})
	ride, err := rides.Create(ctx, creator.ID, RideInput{
		Origin:        "Yaba",
		Destination:   "Lekki Phase 1",
		DepartureTime: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
		TransportMode: "Car",
		TotalSeats:    3,
		PricePerSeat:  1500,
	})
	if err != nil {
		t.Fatalf("seed ride: %v", err)
	}

	req, err := rides.Join(ctx, ride.ID, passenger.ID)
	if err != nil {
		t.Fatalf("seed join request: %v", err)
	}
	if _, err := rides.Respond(ctx, ride.ID, req.ID, creator.ID, models.RequestAccepted); err != nil {
		t.Fatalf("seed accept: %v", err)
	}

	chat := NewChatService(messageStore{store}, groupStore{store}, rideStore{store}, store, hub, nil)
	return &fixture{
		store:     store,
		hub:       hub,
		chat:      chat,
		rides:     rides,
		groupID:   ride.Group.ID,
		rideID:    ride.ID,
		creator:   creator,
		passenger: passenger,
		outsider:  outsider,
	}
}
