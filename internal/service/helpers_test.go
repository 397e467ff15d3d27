package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"timeclock/internal/domain"
	"timeclock/internal/events"
	"timeclock/internal/repository"
)

type memStore struct {
	mu        sync.Mutex
	users     []domain.User
	version   int64
	loadErr   error
	saveErr   error
	loads     int
	saves     int
	conflicts int // remaining SaveIfVersion calls that report a conflict
	session   *domain.User
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) Load(ctx context.Context) ([]domain.User, error) {
	snap, err := m.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Users, nil
}

func (m *memStore) LoadSnapshot(context.Context) (repository.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return repository.Snapshot{}, m.loadErr
	}
	return repository.Snapshot{Users: cloneUsers(m.users), Version: m.version}, nil
}

func (m *memStore) Save(_ context.Context, users []domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.users = cloneUsers(users)
	m.version++
	return nil
}

func (m *memStore) SaveIfVersion(_ context.Context, users []domain.User, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		m.version++
		return fmt.Errorf("save users at version %d: %w", version, domain.ErrVersionConflict)
	}
	if version != m.version {
		return fmt.Errorf("save users at version %d: %w", version, domain.ErrVersionConflict)
	}
	m.users = cloneUsers(users)
	m.version++
	return nil
}

func (m *memStore) SaveSession(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := user.Clone()
	m.session = &u
	return nil
}

func (m *memStore) LoadSession(context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, domain.ErrNoSession
	}
	u := m.session.Clone()
	return &u, nil
}

func (m *memStore) ClearSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memStore) put(users ...domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = cloneUsers(users)
	m.version++
}

func (m *memStore) stored(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := domain.FindUser(m.users, id)
	if idx < 0 {
		return domain.User{}
	}
	return m.users[idx].Clone()
}

func cloneUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = users[i].Clone()
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ShiftEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ShiftEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.ShiftEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.ShiftEvent, len(p.events))
	copy(out, p.events)
	return out
}

// fakeClock hands out a fixed instant that tests advance by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestClockService(store *memStore, clock *fakeClock, publisher events.Publisher) *clockService {
	svc := NewClockService(NewLedger(store, quietLogger()), publisher, quietLogger()).(*clockService)
	svc.now = clock.Now
	svc.newID = sequentialIDs("rec")
	return svc
}

func newTestUserService(store *memStore) *userService {
	svc := NewUserService(NewLedger(store, quietLogger()), store, domain.DefaultHourlyRate, quietLogger()).(*userService)
	svc.newID = sequentialIDs("user")
	svc.hashCost = bcrypt.MinCost
	return svc
}

func closedRecord(id string, in, out time.Time) domain.TimeRecord {
	rec := domain.NewTimeRecord(id, in)
	o := out.UTC()
	rec.ClockOut = &o
	return rec
}
