package http

import (
	"time"

	"timeclock/internal/domain"
)

type UserResponse struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	HourlyRate         float64 `json:"hourly_rate"`
	HasChangedPassword bool    `json:"has_changed_password"`
}

type LoginResponse struct {
	Token              string       `json:"token"`
	ExpiresAt          string       `json:"expires_at"`
	User               UserResponse `json:"user"`
	MustChangePassword bool         `json:"must_change_password"`
}

type TimeRecordResponse struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	ClockIn  string  `json:"clock_in"`
	ClockOut *string `json:"clock_out"`
	Hours    float64 `json:"hours"`
}

type ClockStateResponse struct {
	IsClockedIn bool    `json:"is_clocked_in"`
	LastClockIn *string `json:"last_clock_in,omitempty"`
}

type ToggleResponse struct {
	Record TimeRecordResponse `json:"record"`
	State  ClockStateResponse `json:"state"`
}

type WeeklySummaryResponse struct {
	WindowStart  string               `json:"window_start"`
	WindowEnd    string               `json:"window_end"`
	HourlyRate   float64              `json:"hourly_rate"`
	TotalHours   float64              `json:"total_hours"`
	EstimatedPay float64              `json:"estimated_pay"`
	Records      []TimeRecordResponse `json:"records"`
}

type WeeklyAverageResponse struct {
	Weeks        int     `json:"weeks"`
	TotalHours   float64 `json:"total_hours"`
	AverageHours float64 `json:"average_hours"`
	AveragePay   float64 `json:"average_pay"`
}

type BackupResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:                 user.ID,
		Username:           user.Username,
		HourlyRate:         user.HourlyRate,
		HasChangedPassword: user.HasChangedPassword,
	}
}

func recordToResponse(rec domain.TimeRecord) TimeRecordResponse {
	resp := TimeRecordResponse{
		ID:      rec.ID,
		Date:    rec.Date,
		ClockIn: rec.ClockIn.UTC().Format(time.RFC3339),
		Hours:   rec.Hours(),
	}
	if rec.ClockOut != nil {
		v := rec.ClockOut.UTC().Format(time.RFC3339)
		resp.ClockOut = &v
	}
	return resp
}

func recordsToResponse(records []domain.TimeRecord) []TimeRecordResponse {
	resp := make([]TimeRecordResponse, len(records))
	for i := range records {
		resp[i] = recordToResponse(records[i])
	}
	return resp
}

func stateToResponse(state domain.ClockState) ClockStateResponse {
	resp := ClockStateResponse{IsClockedIn: state.IsClockedIn}
	if state.LastClockIn != nil {
		v := state.LastClockIn.UTC().Format(time.RFC3339)
		resp.LastClockIn = &v
	}
	return resp
}

func summaryToResponse(summary domain.WeeklySummary) WeeklySummaryResponse {
	return WeeklySummaryResponse{
		WindowStart:  summary.WindowStart.Format(domain.DateLayout),
		WindowEnd:    summary.WindowEnd.Format(domain.DateLayout),
		HourlyRate:   summary.HourlyRate,
		TotalHours:   summary.TotalHours,
		EstimatedPay: summary.EstimatedPay,
		Records:      recordsToResponse(summary.Records),
	}
}
