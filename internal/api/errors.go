package api

import (
	"errors"
	"net/http"

	"github.com/fentz26/tempo/internal/store"
)

// Sentinel errors for service operations. Store sentinels (store.ErrNotFound,
// store.ErrConflict, store.ErrNotRunning) pass through wrapped.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrTimerField      = errors.New("timer fields change only through start and stop")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrProjectArchived = errors.New("project is archived")
)

// statusFor maps an error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTimerField):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotRunning),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrProjectArchived):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
