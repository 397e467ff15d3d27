package events

import (
	"context"
	"time"
)

type ShiftEventType string

const (
	ShiftClockedIn  ShiftEventType = "clocked_in"
	ShiftClockedOut ShiftEventType = "clocked_out"
)

// ShiftEvent announces a completed clock in or clock out.
type ShiftEvent struct {
	Type     ShiftEventType `json:"type"`
	UserID   string         `json:"user_id"`
	Username string         `json:"username"`
	RecordID string         `json:"record_id"`
	Date     string         `json:"date"`
	ClockIn  time.Time      `json:"clock_in"`
	ClockOut *time.Time     `json:"clock_out,omitempty"`
}

// Publisher delivers shift events to downstream consumers such as payroll exports.
type Publisher interface {
	Publish(ctx context.Context, event ShiftEvent) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ShiftEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
