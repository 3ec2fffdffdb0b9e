package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"
)

func TestChatSendPersistsThenBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.chat.Send(ctx, f.groupID, f.passenger.ID, "  leaving in 10  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if msg.Content != "leaving in 10" {
		t.Errorf("content = %q, want trimmed", msg.Content)
	}
	if msg.ID == "" || msg.CreatedAt.IsZero() {
		t.Error("message should carry a server-assigned id and timestamp")
	}
	if msg.Sender == nil || msg.Sender.FullName != f.passenger.FullName {
		t.Errorf("sender not hydrated: %+v", msg.Sender)
	}

	history, err := f.chat.History(ctx, f.groupID, f.creator.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Fatalf("message not persisted, history = %+v", history)
	}

	events := f.hub.events()
	if len(events) != 1 {
		t.Fatalf("got %d broadcasts, want 1", len(events))
	}
	if events[0].groupID != f.groupID || events[0].msg.ID != msg.ID {
		t.Errorf("broadcast payload mismatch: %+v", events[0])
	}
	if events[0].msg.CreatedAt.IsZero() {
		t.Error("broadcast must carry the persisted timestamp, not a zero value")
	}
}

func TestChatSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		groupID string
		sender  string
		content string
		wantErr error
	}{
		{"empty content", f.groupID, f.creator.ID, "   ", ErrValidation},
		{"unknown group", "no-such-group", f.creator.ID, "hello", repository.ErrNotFound},
		{"non-member sender", f.groupID, f.outsider.ID, "hello", ErrForbidden},
		{"unknown sender", f.groupID, "no-such-user", "hello", repository.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.chat.Send(ctx, tt.groupID, tt.sender, tt.content); !errors.Is(err, tt.wantErr) {
				t.Errorf("Send error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if history, _ := f.chat.History(ctx, f.groupID, f.creator.ID); len(history) != 0 {
		t.Errorf("rejected sends must not persist anything, history = %+v", history)
	}
	if events := f.hub.events(); len(events) != 0 {
		t.Errorf("rejected sends must not broadcast, got %d events", len(events))
	}
}

func TestChatSendNoBroadcastOnPersistFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bang := fmt.Errorf("connection reset")
	f.store.failCreateMessage = bang

	if _, err := f.chat.Send(ctx, f.groupID, f.creator.ID, "hello"); !errors.Is(err, bang) {
		t.Fatalf("Send error = %v, want the store error surfaced as-is", err)
	}
	if events := f.hub.events(); len(events) != 0 {
		t.Fatal("nothing may be published when the insert fails")
	}

	// The caller retries; the retry is a fresh message.
	f.store.failCreateMessage = nil
	if _, err := f.chat.Send(ctx, f.groupID, f.creator.ID, "hello"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if history, _ := f.chat.History(ctx, f.groupID, f.creator.ID); len(history) != 1 {
		t.Errorf("exactly one message should be stored after retry, got %d", len(history))
	}
}

func TestChatHistoryOrderingAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		msg, err := f.chat.Send(ctx, f.groupID, f.creator.ID, content)
		if err != nil {
			t.Fatalf("Send(%q): %v", content, err)
		}
		ids = append(ids, msg.ID)
	}

	history, err := f.chat.History(ctx, f.groupID, f.passenger.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d messages, want 3", len(history))
	}
	for i, msg := range history {
		if msg.ID != ids[i] {
			t.Errorf("history[%d].ID = %s, want %s (creation order)", i, msg.ID, ids[i])
		}
		if msg.Sender == nil {
			t.Errorf("history[%d] missing hydrated sender", i)
		}
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Errorf("history out of order at %d", i)
		}
	}

	again, err := f.chat.History(ctx, f.groupID, f.passenger.ID)
	if err != nil {
		t.Fatalf("second History: %v", err)
	}
	if len(again) != len(history) {
		t.Error("repeated reads must return the same log")
	}
	for i := range again {
		if again[i].ID != history[i].ID {
			t.Errorf("repeated read diverged at %d", i)
		}
	}
}

func TestChatHistoryNonMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.chat.History(ctx, f.groupID, f.outsider.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("History for non-member = %v, want ErrForbidden", err)
	}
	if _, err := f.chat.History(ctx, "no-such-group", f.creator.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("History for unknown group = %v, want ErrNotFound", err)
	}
}

func TestChatMembershipFlipOpensAndClosesTheChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.chat.Send(ctx, f.groupID, f.outsider.ID, "can I come"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider send = %v, want ErrForbidden", err)
	}

	req, err := f.rides.Join(ctx, f.rideID, f.outsider.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := f.chat.Send(ctx, f.groupID, f.outsider.ID, "still waiting"); !errors.Is(err, ErrForbidden) {
		t.Fatal("a pending request must not grant access")
	}

	if _, err := f.rides.Respond(ctx, f.rideID, req.ID, f.creator.ID, models.RequestAccepted); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if _, err := f.chat.Send(ctx, f.groupID, f.outsider.ID, "on my way"); err != nil {
		t.Errorf("accepted requester should be able to send, got %v", err)
	}
	if _, err := f.chat.History(ctx, f.groupID, f.outsider.ID); err != nil {
		t.Errorf("accepted requester should be able to read, got %v", err)
	}

	if err := f.rides.Leave(ctx, f.rideID, f.outsider.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	// Leaving removes the passenger row but the ACCEPTED request row
	// remains, so membership persists through the request path. Reject
	// revokes it fully.
	f.store.mu.Lock()
	for i := range f.store.rides[f.rideID].Requests {
		if f.store.rides[f.rideID].Requests[i].UserID == f.outsider.ID {
			f.store.rides[f.rideID].Requests[i].Status = models.RequestRejected
		}
	}
	f.store.mu.Unlock()
	if _, err := f.chat.Send(ctx, f.groupID, f.outsider.ID, "hello again"); !errors.Is(err, ErrForbidden) {
		t.Errorf("revoked member send = %v, want ErrForbidden", err)
	}
}

func TestChatOfflinePushTargeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.rides.Join(ctx, f.rideID, f.outsider.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := f.rides.Respond(ctx, f.rideID, req.ID, f.creator.ID, models.RequestAccepted); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	notifier := newRecordingNotifier()
	f.hub.connected = map[string]bool{f.passenger.ID: true}
	chat := NewChatService(messageStore{f.store}, groupStore{f.store}, rideStore{f.store}, f.store, f.hub, notifier)

	if _, err := chat.Send(ctx, f.groupID, f.creator.ID, "heads up"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case targets := <-notifier.deliveries:
		sawOffline := false
		for _, id := range targets {
			if id == f.creator.ID {
				t.Error("the sender must never be pushed")
			}
			if id == f.passenger.ID {
				t.Error("connected users must not be pushed")
			}
			if id == f.outsider.ID {
				sawOffline = true
			}
		}
		if !sawOffline {
			t.Error("the offline member should have been pushed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an offline push delivery")
	}
}

func TestAuthorizeMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group, err := f.chat.AuthorizeMember(ctx, f.groupID, f.passenger.ID)
	if err != nil {
		t.Fatalf("AuthorizeMember: %v", err)
	}
	if group.ID != f.groupID || group.RideID != f.rideID {
		t.Errorf("group = %+v", group)
	}

	if _, err := f.chat.AuthorizeMember(ctx, f.groupID, f.outsider.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider = %v, want ErrForbidden", err)
	}
}
