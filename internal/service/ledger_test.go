package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"timeclock/internal/domain"
	"timeclock/internal/repository/sqlite"
)

func TestLedgerGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore()
	seedUser(store)
	store.conflicts = defaultMaxAttempts
	ledger := NewLedger(store, quietLogger())

	_, err := ledger.UpdateUser(context.Background(), "u1", func(user *domain.User) error {
		user.HourlyRate = 30
		return nil
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if store.saves != defaultMaxAttempts {
		t.Fatalf("saves = %d, want %d", store.saves, defaultMaxAttempts)
	}
	if got := store.stored("u1").HourlyRate; got != 20 {
		t.Fatalf("hourly rate changed to %v despite failed write", got)
	}
}

func TestLedgerRejectsInvariantViolation(t *testing.T) {
	store := newMemStore()
	seedUser(store)
	ledger := NewLedger(store, quietLogger())

	_, err := ledger.UpdateUser(context.Background(), "u1", func(user *domain.User) error {
		at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		user.TimeRecords = append(user.TimeRecords,
			domain.NewTimeRecord("a", at),
			domain.NewTimeRecord("b", at.Add(time.Hour)),
		)
		return nil
	})
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("invalid collection must not be saved")
	}
}

func TestLedgerDoesNotLeakMutationsOnError(t *testing.T) {
	store := newMemStore()
	seedUser(store)
	ledger := NewLedger(store, quietLogger())

	_, err := ledger.UpdateUser(context.Background(), "u1", func(user *domain.User) error {
		user.Username = "mallory"
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := store.stored("u1").Username; got != "alice" {
		t.Fatalf("username = %q, want alice", got)
	}
}

func TestConcurrentClockInForDifferentUsers(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "timeclock.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := sqlite.NewRecordStore(db)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}

	const workers = 16
	users := make([]domain.User, workers)
	for i := range users {
		users[i] = domain.User{
			ID:          fmt.Sprintf("u%d", i),
			Username:    fmt.Sprintf("user%d", i),
			HourlyRate:  15,
			TimeRecords: []domain.TimeRecord{},
		}
	}
	if err := store.Save(context.Background(), users); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	svc := NewClockService(NewLedger(store, quietLogger()), nil, quietLogger())

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.ClockIn(context.Background(), id); err != nil {
				errs <- fmt.Errorf("%s: %w", id, err)
			}
		}(users[i].ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ClockIn failed: %v", err)
	}

	stored, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, u := range stored {
		if !u.ClockState().IsClockedIn {
			t.Fatalf("user %s is not clocked in", u.ID)
		}
	}
}
