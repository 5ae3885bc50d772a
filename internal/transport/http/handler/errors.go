package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-phone-verify/internal/domain"
)

// httpError maps domain errors to a status code and client-facing message.
// Anything unrecognised is logged and reported as a 500 without details.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, clientMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrMismatch):
		writeError(w, http.StatusBadRequest, domain.ErrMismatch.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrDelivery):
		writeError(w, http.StatusUnprocessableEntity, domain.ErrDelivery.Error())
	default:
		slog.Error("unhandled error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// clientMessage keeps the wrapped detail of a validation error, which only
// ever describes the caller's own input.
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}
