package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"timeclock/internal/domain"
	"timeclock/internal/events"
)

// ClockService moves a user between the clocked-out and clocked-in states.
// The state is always derived from the user's last time record.
type ClockService interface {
	ClockIn(ctx context.Context, userID string) (*domain.TimeRecord, error)
	ClockOut(ctx context.Context, userID string) (*domain.TimeRecord, error)
	Toggle(ctx context.Context, userID string) (*domain.TimeRecord, domain.ClockState, error)
	CurrentState(ctx context.Context, userID string) (domain.ClockState, error)
	TimeRecords(ctx context.Context, userID string) ([]domain.TimeRecord, error)
}

type clockService struct {
	ledger    *Ledger
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
	newID     func() string
}

func NewClockService(ledger *Ledger, publisher events.Publisher, logger *logrus.Logger) ClockService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &clockService{
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *clockService) ClockIn(ctx context.Context, userID string) (*domain.TimeRecord, error) {
	var record domain.TimeRecord
	user, err := s.ledger.UpdateUser(ctx, userID, func(user *domain.User) error {
		rec, err := s.clockIn(user)
		record = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ShiftClockedIn, user, record)
	return &record, nil
}

func (s *clockService) ClockOut(ctx context.Context, userID string) (*domain.TimeRecord, error) {
	var record domain.TimeRecord
	user, err := s.ledger.UpdateUser(ctx, userID, func(user *domain.User) error {
		rec, err := s.clockOut(user)
		record = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ShiftClockedOut, user, record)
	return &record, nil
}

// Toggle clocks out when a shift is open and clocks in otherwise, deciding
// from the stored state inside the same write.
func (s *clockService) Toggle(ctx context.Context, userID string) (*domain.TimeRecord, domain.ClockState, error) {
	var (
		record    domain.TimeRecord
		eventType events.ShiftEventType
	)
	user, err := s.ledger.UpdateUser(ctx, userID, func(user *domain.User) error {
		var err error
		if user.ClockState().IsClockedIn {
			eventType = events.ShiftClockedOut
			record, err = s.clockOut(user)
		} else {
			eventType = events.ShiftClockedIn
			record, err = s.clockIn(user)
		}
		return err
	})
	if err != nil {
		return nil, domain.ClockState{}, err
	}
	s.publish(ctx, eventType, user, record)
	return &record, user.ClockState(), nil
}

func (s *clockService) CurrentState(ctx context.Context, userID string) (domain.ClockState, error) {
	user, err := s.ledger.User(ctx, userID)
	if err != nil {
		return domain.ClockState{}, err
	}
	return user.ClockState(), nil
}

func (s *clockService) TimeRecords(ctx context.Context, userID string) ([]domain.TimeRecord, error) {
	user, err := s.ledger.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TimeRecords == nil {
		return []domain.TimeRecord{}, nil
	}
	return user.TimeRecords, nil
}

func (s *clockService) clockIn(user *domain.User) (domain.TimeRecord, error) {
	if user.ClockState().IsClockedIn {
		return domain.TimeRecord{}, domain.ErrAlreadyClockedIn
	}
	record := domain.NewTimeRecord(s.newID(), s.now())
	user.TimeRecords = append(user.TimeRecords, record)
	return record, nil
}

func (s *clockService) clockOut(user *domain.User) (domain.TimeRecord, error) {
	last := user.LastRecord()
	if last == nil || !last.IsOpen() {
		return domain.TimeRecord{}, domain.ErrNoOpenShift
	}
	out := s.now().UTC()
	// a clock stepping backwards must not produce a negative shift
	if out.Before(last.ClockIn) {
		out = last.ClockIn
	}
	last.ClockOut = &out
	return last.Clone(), nil
}

func (s *clockService) publish(ctx context.Context, eventType events.ShiftEventType, user *domain.User, record domain.TimeRecord) {
	event := events.ShiftEvent{
		Type:     eventType,
		UserID:   user.ID,
		Username: user.Username,
		RecordID: record.ID,
		Date:     record.Date,
		ClockIn:  record.ClockIn,
		ClockOut: record.ClockOut,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"record_id": record.ID,
			"event":     eventType,
		}).Warnf("publish shift event: %v", err)
	}
}
