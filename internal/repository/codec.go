package repository

import (
	"encoding/json"
	"fmt"

	"timeclock/internal/domain"
)

// DecodeUsers parses a persisted user collection. A blank payload is an empty collection.
func DecodeUsers(payload []byte) ([]domain.User, error) {
	if len(payload) == 0 {
		return []domain.User{}, nil
	}
	var users []domain.User
	if err := json.Unmarshal(payload, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w: %w", domain.ErrStorageCorrupt, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	for i := range users {
		if users[i].TimeRecords == nil {
			users[i].TimeRecords = []domain.TimeRecord{}
		}
	}
	return users, nil
}

// EncodeUsers renders the collection in its persisted JSON layout.
func EncodeUsers(users []domain.User) ([]byte, error) {
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = users[i]
		if out[i].TimeRecords == nil {
			out[i].TimeRecords = []domain.TimeRecord{}
		}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode users: %w", err)
	}
	return payload, nil
}
