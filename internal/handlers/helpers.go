package handlers

import (
	"errors"
	"net/http"

	"homesync/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "Internal server error."
	}
	return err.Error()
}
