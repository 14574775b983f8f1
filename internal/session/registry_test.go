package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/showcall/showcall-core/internal/show"
)

func newTestRegistry(repo *memRepo, grace time.Duration) *Registry {
	return NewRegistry(repo, RegistryConfig{
		QueueSize:       16,
		EvictionGrace:   grace,
		JanitorInterval: time.Minute,
	}, nil, nil)
}

func TestRegistry_GetOrCreate(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	reg := newTestRegistry(repo, time.Minute)
	defer reg.Close()
	ctx := context.Background()

	s1, err := reg.GetOrCreate(ctx, sh.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	s2, err := reg.GetOrCreate(ctx, sh.ID)
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if s1 != s2 {
		t.Error("repeated GetOrCreate returned different sessions")
	}
	if reg.Count() != 1 {
		t.Errorf("resident sessions = %d, want 1", reg.Count())
	}
}

func TestRegistry_UnknownShow(t *testing.T) {
	repo := newMemRepo()
	reg := newTestRegistry(repo, time.Minute)
	defer reg.Close()

	_, err := reg.GetOrCreate(context.Background(), "show-missing")
	if !errors.Is(err, show.ErrShowNotFound) {
		t.Fatalf("err = %v, want ErrShowNotFound", err)
	}
	if reg.Count() != 0 {
		t.Errorf("resident sessions = %d, want 0", reg.Count())
	}
}

func TestRegistry_EvictsCompletedAfterGrace(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	reg := newTestRegistry(repo, time.Minute)
	defer reg.Close()
	ctx := context.Background()

	sess, err := reg.GetOrCreate(ctx, sh.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if _, err := sess.Submit(ctx, StartShow{Actor: "sm"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.Submit(ctx, EndShow{Actor: "sm"}); err != nil {
		t.Fatalf("end: %v", err)
	}

	// Within the grace period the session stays resident.
	reg.evictCompleted(time.Now().UTC())
	if reg.Count() != 1 {
		t.Fatalf("resident sessions = %d, want 1 before grace elapses", reg.Count())
	}

	reg.evictCompleted(time.Now().UTC().Add(2 * time.Minute))
	if reg.Count() != 0 {
		t.Fatalf("resident sessions = %d, want 0 after grace", reg.Count())
	}

	// Evicted session rejects further commands.
	if _, err := sess.Submit(ctx, StartShow{Actor: "sm"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("submit on evicted session: err = %v, want ErrSessionClosed", err)
	}

	// A late command rehydrates from persisted state and still enforces the
	// terminal status.
	fresh, err := reg.GetOrCreate(ctx, sh.ID)
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if _, err := fresh.Submit(ctx, StartShow{Actor: "sm"}); !errors.Is(err, show.ErrInvalidShowState) {
		t.Errorf("start on completed show: err = %v, want ErrInvalidShowState", err)
	}
}

func TestRegistry_RunningShowNotEvicted(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusRunning)
	reg := newTestRegistry(repo, 0)
	defer reg.Close()

	if _, err := reg.GetOrCreate(context.Background(), sh.ID); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	reg.evictCompleted(time.Now().UTC().Add(time.Hour))
	if reg.Count() != 1 {
		t.Errorf("resident sessions = %d, want 1", reg.Count())
	}
}
