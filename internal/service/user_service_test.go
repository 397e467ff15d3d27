package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"timeclock/internal/domain"
)

func TestCreateUserDefaults(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)

	user, err := svc.CreateUser(context.Background(), "  alice ", "")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Username != "alice" || user.HourlyRate != domain.DefaultHourlyRate || user.HasChangedPassword {
		t.Fatalf("unexpected user %#v", user)
	}
	if user.PasswordHash != "" {
		t.Fatalf("returned user must not carry the password hash")
	}

	stored := store.stored(user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("alice")); err != nil {
		t.Fatalf("default credential should equal the username: %v", err)
	}
	if stored.TimeRecords == nil || len(stored.TimeRecords) != 0 {
		t.Fatalf("expected empty time records, got %#v", stored.TimeRecords)
	}
}

func TestCreateUserRejectsDuplicateAndBlank(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "alice", "secret"); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "alice", "other"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, "   ", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	users, err := svc.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers returned error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}

func TestGetUsersToleratesCorruptStore(t *testing.T) {
	store := newMemStore()
	store.loadErr = domain.ErrStorageCorrupt
	svc := newTestUserService(store)

	users, err := svc.GetUsers(context.Background())
	if err != nil {
		t.Fatalf("GetUsers returned error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}

	if _, err := svc.CreateUser(context.Background(), "alice", ""); !errors.Is(err, domain.ErrStorageCorrupt) {
		t.Fatalf("write path must surface corruption, got %v", err)
	}
}

func TestGetUsersSurfacesIOFailure(t *testing.T) {
	store := newMemStore()
	store.loadErr = domain.ErrStorageIO
	svc := newTestUserService(store)

	if _, err := svc.GetUsers(context.Background()); !errors.Is(err, domain.ErrStorageIO) {
		t.Fatalf("expected ErrStorageIO, got %v", err)
	}
}

func TestLoginCreatesUserOnFirstSight(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	user, err := svc.Login(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.Username != "bob" || user.HasChangedPassword {
		t.Fatalf("unexpected user %#v", user)
	}

	session, err := svc.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if session.ID != user.ID || session.PasswordHash != "" || session.TimeRecords != nil {
		t.Fatalf("unexpected session snapshot %#v", session)
	}

	again, err := svc.Login(ctx, "bob", "bob")
	if err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("second login created a new user")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "carol", "s3cret"); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if _, err := svc.Login(ctx, "carol", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("failed login must not create a session, got %v", err)
	}
}

func TestLoginUnknownUserWithOtherPasswordCreatesNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "alice", "hunter2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	users, err := svc.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers returned error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("rejected login left %d users behind", len(users))
	}
	if store.saves != 0 {
		t.Fatalf("rejected login wrote to the store %d times", store.saves)
	}
}

func TestSignInLeavesSessionUntouched(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	local, err := svc.Login(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := svc.SignIn(ctx, "bob", ""); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	session, err := svc.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if session.ID != local.ID {
		t.Fatalf("session switched to %q, want %q", session.Username, local.Username)
	}
}

func TestUpdateUserPasswordMarksChangeAndRefreshesSession(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	user, err := svc.Login(ctx, "dave", "")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	updated, err := svc.UpdateUserPassword(ctx, user.ID, "n3w-pass")
	if err != nil {
		t.Fatalf("UpdateUserPassword returned error: %v", err)
	}
	if !updated.HasChangedPassword {
		t.Fatalf("expected hasChangedPassword to be set")
	}

	session, err := svc.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if !session.HasChangedPassword {
		t.Fatalf("expected session snapshot to be refreshed")
	}

	if _, err := svc.Authenticate(ctx, "dave", "dave"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old default credential should stop working, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "dave", "n3w-pass"); err != nil {
		t.Fatalf("Authenticate with new password returned error: %v", err)
	}
}

func TestUpdateUserPasswordErrors(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	if _, err := svc.UpdateUserPassword(ctx, "missing", "pw"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.UpdateUserPassword(ctx, "missing", "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateHourlyRate(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "erin", "")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	tests := []struct {
		name    string
		rate    float64
		wantErr error
	}{
		{name: "zero", rate: 0},
		{name: "positive", rate: 27.5},
		{name: "negative", rate: -1, wantErr: domain.ErrInvalidHourlyRate},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			updated, err := svc.UpdateHourlyRate(ctx, user.ID, testCase.rate)
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					t.Fatalf("expected %v, got %v", testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateHourlyRate returned error: %v", err)
			}
			if updated.HourlyRate != testCase.rate {
				t.Fatalf("hourly rate = %v, want %v", updated.HourlyRate, testCase.rate)
			}
		})
	}
}

func TestLogoutClearsSession(t *testing.T) {
	store := newMemStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "frank", ""); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
