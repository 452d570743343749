package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClearKeepsID(t *testing.T) {
	s := New()
	id := s.ID
	s.LoginState = LoginAuthenticated
	s.SessionToken = "tok"
	s.UserID = "u1"
	s.RegistrationStep = StepPhoneCode
	s.RegistrationID = "r1"

	s.Clear()
	if s.ID != id {
		t.Fatalf("Clear changed id")
	}
	if s.LoginState != LoginIdle || s.SessionToken != "" || s.UserID != "" || s.RegistrationID != "" || s.RegistrationStep != StepIdentity {
		t.Fatalf("Clear left state behind: %+v", s)
	}
}

func TestResetRegistrationKeepsLogin(t *testing.T) {
	s := New()
	s.LoginState = LoginAuthenticated
	s.SessionToken = "tok"
	s.RegistrationStep = StepPhoneNumber
	s.RegistrationID = "r1"
	s.VerificationSid = "sid"

	s.ResetRegistration()
	if !s.Authenticated() {
		t.Fatal("login state should survive a registration reset")
	}
	if s.RegistrationStep != StepIdentity || s.RegistrationID != "" || s.VerificationSid != "" {
		t.Fatalf("registration not reset: %+v", s)
	}
}

func TestSnapshotHidesToken(t *testing.T) {
	s := New()
	s.SessionToken = "secret"
	s.LoginState = LoginAuthenticated
	snap := s.Snapshot()
	if !snap.HasSessionToken || snap.LoginState != "authenticated" || snap.RegistrationStep != "identity" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s := New()
	s.UserID = "u1"
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Get(ctx, s.ID)
	if err != nil || got.UserID != "u1" {
		t.Fatalf("Get: %v %+v", err, got)
	}
	got.UserID = "mutated"
	again, _ := store.Get(ctx, s.ID)
	if again.UserID != "u1" {
		t.Fatal("store must hand out copies")
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestMemoryStoreSweepAndDelete(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	old, fresh := New(), New()
	_ = store.Save(ctx, old)
	now = now.Add(45 * time.Second)
	_ = store.Save(ctx, fresh)
	now = now.Add(30 * time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if err := store.Delete(ctx, fresh.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, fresh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
