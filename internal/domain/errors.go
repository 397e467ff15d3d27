package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrAlreadyClockedIn   = errors.New("user is already clocked in")
	ErrNoOpenShift        = errors.New("no active clock in record found")
	ErrStorageCorrupt     = errors.New("stored data is corrupt")
	ErrStorageIO          = errors.New("storage failure")
	ErrVersionConflict    = errors.New("stored data changed since it was loaded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidHourlyRate  = errors.New("hourly rate must be a non-negative number")
	ErrInvariantViolation = errors.New("time record invariant violated")
	// ErrNoSession is returned when no user snapshot is cached.
	ErrNoSession = errors.New("no user logged in")
)

// ErrInvalidInput wraps caller mistakes such as a blank username.
var ErrInvalidInput = errors.New("invalid input")
