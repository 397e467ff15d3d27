package domain

import "time"

// WeeklySummary aggregates the shifts dated within the rolling seven-day window.
type WeeklySummary struct {
	WindowStart  time.Time
	WindowEnd    time.Time
	HourlyRate   float64
	TotalHours   float64
	EstimatedPay float64
	Records      []TimeRecord
}

// WeeklyAverage is the mean hours per ISO week that has at least one closed shift.
type WeeklyAverage struct {
	Weeks        int
	TotalHours   float64
	AverageHours float64
	AveragePay   float64
}
