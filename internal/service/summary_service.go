package service

import (
	"context"
	"time"

	"timeclock/internal/domain"
)

// windowDays is the length of the rolling summary window, today included.
const windowDays = 7

// SummaryService derives hours and pay from a user's time records.
type SummaryService interface {
	WeeklySummary(ctx context.Context, userID string) (*domain.WeeklySummary, error)
	WeeklyAverage(ctx context.Context, userID string) (*domain.WeeklyAverage, error)
}

type summaryService struct {
	ledger *Ledger
	now    func() time.Time
}

func NewSummaryService(ledger *Ledger) SummaryService {
	return &summaryService{
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *summaryService) WeeklySummary(ctx context.Context, userID string) (*domain.WeeklySummary, error) {
	user, err := s.ledger.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := SummarizeWeek(*user, s.now())
	return &summary, nil
}

func (s *summaryService) WeeklyAverage(ctx context.Context, userID string) (*domain.WeeklyAverage, error) {
	user, err := s.ledger.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	avg := AverageWeeklyHours(*user)
	return &avg, nil
}

// SummarizeWeek selects the records dated within the seven UTC calendar days
// ending on now's date and totals their closed hours. Open records are kept
// in the result but add nothing to the total.
func SummarizeWeek(user domain.User, now time.Time) domain.WeeklySummary {
	today := startOfDay(now)
	start := today.AddDate(0, 0, -(windowDays - 1))

	summary := domain.WeeklySummary{
		WindowStart: start,
		WindowEnd:   today,
		HourlyRate:  user.HourlyRate,
		Records:     []domain.TimeRecord{},
	}
	for _, rec := range user.TimeRecords {
		day := recordDay(rec)
		if day.Before(start) || day.After(today) {
			continue
		}
		summary.Records = append(summary.Records, rec.Clone())
		summary.TotalHours += rec.Hours()
	}
	summary.EstimatedPay = summary.TotalHours * user.HourlyRate
	return summary
}

// AverageWeeklyHours groups closed shifts by the ISO week of their clock in
// and averages over the weeks that have any. Unlike SummarizeWeek it looks at
// the whole history.
func AverageWeeklyHours(user domain.User) domain.WeeklyAverage {
	type isoWeek struct{ year, week int }

	weeks := make(map[isoWeek]struct{})
	var avg domain.WeeklyAverage
	for _, rec := range user.TimeRecords {
		if rec.IsOpen() {
			continue
		}
		year, week := rec.ClockIn.UTC().ISOWeek()
		weeks[isoWeek{year, week}] = struct{}{}
		avg.TotalHours += rec.Hours()
	}
	avg.Weeks = len(weeks)
	if avg.Weeks > 0 {
		avg.AverageHours = avg.TotalHours / float64(avg.Weeks)
		avg.AveragePay = avg.AverageHours * user.HourlyRate
	}
	return avg
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// recordDay prefers the stored date and falls back to the clock in instant.
func recordDay(rec domain.TimeRecord) time.Time {
	if day, err := rec.Day(); err == nil {
		return day
	}
	return startOfDay(rec.ClockIn)
}
