package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"timeclock/internal/backup"
	"timeclock/internal/domain"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrAlreadyClockedIn),
		errors.Is(err, domain.ErrNoOpenShift),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, backup.ErrNothingToBackup):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidHourlyRate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageIO):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
		msg = "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "storage unavailable, please retry"
		}
	}
	c.JSON(status, gin.H{"error": msg})
}
