package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format stored on each record.
const DateLayout = "2006-01-02"

// TimeRecord is one shift. A nil ClockOut means the shift is still open.
type TimeRecord struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"`
	ClockIn  time.Time  `json:"clockIn"`
	ClockOut *time.Time `json:"clockOut"`
}

// ClockState is the derived clocked-in view of a user.
type ClockState struct {
	IsClockedIn bool
	LastClockIn *time.Time
}

// NewTimeRecord opens a shift at the given instant. Timestamps are kept in UTC.
func NewTimeRecord(id string, at time.Time) TimeRecord {
	at = at.UTC()
	return TimeRecord{
		ID:      id,
		Date:    at.Format(DateLayout),
		ClockIn: at,
	}
}

func (r TimeRecord) IsOpen() bool {
	return r.ClockOut == nil
}

// Hours is the worked duration of a closed shift; open shifts count zero.
func (r TimeRecord) Hours() float64 {
	if r.ClockOut == nil || r.ClockIn.IsZero() {
		return 0
	}
	return r.ClockOut.Sub(r.ClockIn).Hours()
}

// Day parses the stored calendar date.
func (r TimeRecord) Day() (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, r.Date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse record date %q: %w", r.Date, err)
	}
	return day, nil
}

func (r TimeRecord) Clone() TimeRecord {
	out := r
	if r.ClockOut != nil {
		v := *r.ClockOut
		out.ClockOut = &v
	}
	return out
}

// ValidateTimeRecords checks the shift invariants: only the last record may
// be open, and every closed record ends at or after it starts.
func ValidateTimeRecords(records []TimeRecord) error {
	for i, rec := range records {
		if rec.ClockOut == nil {
			if i != len(records)-1 {
				return fmt.Errorf("%w: open record %s is not the last record", ErrInvariantViolation, rec.ID)
			}
			continue
		}
		if rec.ClockOut.Before(rec.ClockIn) {
			return fmt.Errorf("%w: record %s clocks out before it clocks in", ErrInvariantViolation, rec.ID)
		}
	}
	return nil
}

// ValidateUsers runs ValidateTimeRecords for every user in the collection.
func ValidateUsers(users []User) error {
	for i := range users {
		if err := ValidateTimeRecords(users[i].TimeRecords); err != nil {
			return fmt.Errorf("user %s: %w", users[i].ID, err)
		}
	}
	return nil
}
