package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"timeclock/internal/domain"
	"timeclock/internal/repository"
)

const defaultMaxAttempts = 3

// Ledger is the single write path to the user collection. The collection is
// stored as one versioned blob, so writes are serialized in-process and the
// versioned save rejects writers from other processes that loaded an older
// collection.
type Ledger struct {
	store       repository.RecordStore
	mu          sync.Mutex
	logger      *logrus.Logger
	maxAttempts int
}

func NewLedger(store repository.RecordStore, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{
		store:       store,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
	}
}

// Users loads the full collection, surfacing storage errors.
func (l *Ledger) Users(ctx context.Context) ([]domain.User, error) {
	return l.store.Load(ctx)
}

// Snapshot loads the collection with its stored version.
func (l *Ledger) Snapshot(ctx context.Context) (repository.Snapshot, error) {
	return l.store.LoadSnapshot(ctx)
}

// User returns a copy of one user.
func (l *Ledger) User(ctx context.Context, userID string) (*domain.User, error) {
	users, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := domain.FindUser(users, userID)
	if idx < 0 {
		return nil, domain.ErrUserNotFound
	}
	user := users[idx].Clone()
	return &user, nil
}

// Update performs one load-modify-save of the whole collection. fn receives a
// private copy and returns the collection to store. On a version conflict the
// cycle is repeated from a fresh load.
func (l *Ledger) Update(ctx context.Context, fn func(users []domain.User) ([]domain.User, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for attempt := 1; ; attempt++ {
		snap, err := l.store.LoadSnapshot(ctx)
		if err != nil {
			return err
		}

		working := make([]domain.User, len(snap.Users))
		for i := range snap.Users {
			working[i] = snap.Users[i].Clone()
		}

		next, err := fn(working)
		if err != nil {
			return err
		}
		if err := domain.ValidateUsers(next); err != nil {
			return err
		}

		err = l.store.SaveIfVersion(ctx, next, snap.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= l.maxAttempts {
			return err
		}
		l.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"version": snap.Version,
		}).Warn("concurrent write detected, retrying")
	}
}

// UpdateUser applies fn to one user inside Update and returns the stored result.
func (l *Ledger) UpdateUser(ctx context.Context, userID string, fn func(user *domain.User) error) (*domain.User, error) {
	var updated domain.User
	err := l.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		idx := domain.FindUser(users, userID)
		if idx < 0 {
			return nil, domain.ErrUserNotFound
		}
		if err := fn(&users[idx]); err != nil {
			return nil, err
		}
		updated = users[idx].Clone()
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
