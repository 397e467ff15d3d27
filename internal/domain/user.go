package domain

// DefaultHourlyRate is assigned to users created without an explicit rate.
const DefaultHourlyRate = 15.0

// User is a time clock account together with its full shift history.
// The JSON shape is the persisted layout of the user collection.
type User struct {
	ID                 string       `json:"id"`
	Username           string       `json:"username"`
	PasswordHash       string       `json:"password"`
	HasChangedPassword bool         `json:"hasChangedPassword"`
	HourlyRate         float64      `json:"hourlyRate"`
	TimeRecords        []TimeRecord `json:"timeRecords"`
}

// LastRecord returns the most recent time record, or nil when the user has none.
func (u *User) LastRecord() *TimeRecord {
	if len(u.TimeRecords) == 0 {
		return nil
	}
	return &u.TimeRecords[len(u.TimeRecords)-1]
}

// ClockState derives the clocked-in state from the last record.
func (u *User) ClockState() ClockState {
	last := u.LastRecord()
	if last == nil || !last.IsOpen() {
		return ClockState{}
	}
	clockIn := last.ClockIn
	return ClockState{IsClockedIn: true, LastClockIn: &clockIn}
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (u User) Clone() User {
	out := u
	if u.TimeRecords != nil {
		out.TimeRecords = make([]TimeRecord, len(u.TimeRecords))
		for i := range u.TimeRecords {
			out.TimeRecords[i] = u.TimeRecords[i].Clone()
		}
	}
	return out
}

// FindUser returns the index of the user with the given id, or -1.
func FindUser(users []User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// FindUsername returns the index of the user with the given username, or -1.
func FindUsername(users []User, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}
