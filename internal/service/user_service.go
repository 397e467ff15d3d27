package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"timeclock/internal/domain"
	"timeclock/internal/repository"
)

// UserService describes user lifecycle operations.
type UserService interface {
	CreateUser(ctx context.Context, username, password string) (*domain.User, error)
	GetUsers(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, userID, newPassword string) (*domain.User, error)
	UpdateHourlyRate(ctx context.Context, userID string, rate float64) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	SignIn(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, error)
	CurrentSession(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

type userService struct {
	ledger      *Ledger
	sessions    repository.SessionStore
	defaultRate float64
	logger      *logrus.Logger
	newID       func() string
	hashCost    int
}

func NewUserService(ledger *Ledger, sessions repository.SessionStore, defaultRate float64, logger *logrus.Logger) UserService {
	if defaultRate < 0 || math.IsNaN(defaultRate) || math.IsInf(defaultRate, 0) {
		defaultRate = domain.DefaultHourlyRate
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		ledger:      ledger,
		sessions:    sessions,
		defaultRate: defaultRate,
		logger:      logger,
		newID:       uuid.NewString,
		hashCost:    bcrypt.DefaultCost,
	}
}

// CreateUser registers a new account. A blank password selects the default
// credential, which is the username itself, and the account is flagged to
// change it.
func (s *userService) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if password == "" {
		password = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: string(hash),
		HourlyRate:   s.defaultRate,
		TimeRecords:  []domain.TimeRecord{},
	}

	err = s.ledger.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		if domain.FindUsername(users, username) >= 0 {
			return nil, domain.ErrUserAlreadyExists
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}

	return sanitizeUser(&user), nil
}

// GetUsers is a tolerant read: a missing or unreadable collection is reported
// as having no users.
func (s *userService) GetUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.ledger.Users(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorageCorrupt) {
			s.logger.Warnf("reading users: %v", err)
			return []domain.User{}, nil
		}
		return nil, err
	}

	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = *sanitizeUser(&users[i])
	}
	return out, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.ledger.User(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateUserPassword(ctx context.Context, userID, newPassword string) (*domain.User, error) {
	if strings.TrimSpace(newPassword) == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.ledger.UpdateUser(ctx, userID, func(user *domain.User) error {
		user.PasswordHash = string(hash)
		user.HasChangedPassword = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshSession(ctx, user)
	return sanitizeUser(user), nil
}

func (s *userService) UpdateHourlyRate(ctx context.Context, userID string, rate float64) (*domain.User, error) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, domain.ErrInvalidHourlyRate
	}

	user, err := s.ledger.UpdateUser(ctx, userID, func(user *domain.User) error {
		user.HourlyRate = rate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshSession(ctx, user)
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidCredentials
	}

	users, err := s.ledger.Users(ctx)
	if err != nil {
		return nil, err
	}
	idx := domain.FindUsername(users, username)
	if idx < 0 {
		return nil, domain.ErrInvalidCredentials
	}
	user := users[idx]

	if password == "" {
		password = username
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(&user), nil
}

// SignIn authenticates the user. An unknown username is registered on first
// sight, but only when the supplied password is the default credential, so a
// rejected sign-in never leaves an account behind.
func (s *userService) SignIn(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}

	users, err := s.ledger.Users(ctx)
	if err != nil {
		return nil, err
	}
	if domain.FindUsername(users, username) < 0 {
		if password != "" && password != username {
			return nil, domain.ErrInvalidCredentials
		}
		if _, err := s.CreateUser(ctx, username, ""); err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.WithField("username", username).Info("created user on first login")
	}

	return s.Authenticate(ctx, username, password)
}

// Login signs in and caches the result as the current local session.
func (s *userService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.SignIn(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.SaveSession(ctx, sessionSnapshot(user)); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *userService) CurrentSession(ctx context.Context) (*domain.User, error) {
	if s.sessions == nil {
		return nil, domain.ErrNoSession
	}
	return s.sessions.LoadSession(ctx)
}

func (s *userService) Logout(ctx context.Context) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.ClearSession(ctx)
}

// refreshSession keeps the cached snapshot current when its user changes.
func (s *userService) refreshSession(ctx context.Context, user *domain.User) {
	if s.sessions == nil {
		return
	}
	current, err := s.sessions.LoadSession(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSession) {
			s.logger.Warnf("load session: %v", err)
		}
		return
	}
	if current.ID != user.ID {
		return
	}
	if err := s.sessions.SaveSession(ctx, sessionSnapshot(user)); err != nil {
		s.logger.Warnf("refresh session: %v", err)
	}
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	out := user.Clone()
	out.PasswordHash = ""
	return &out
}

// sessionSnapshot keeps only the profile; records are always read from the store.
func sessionSnapshot(user *domain.User) domain.User {
	out := *sanitizeUser(user)
	out.TimeRecords = nil
	return out
}
