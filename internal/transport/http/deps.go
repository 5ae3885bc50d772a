package http

import (
	"log/slog"

	"github.com/go-phone-verify/internal/application/verification"
)

// Deps holds everything the router needs beyond configuration.
type Deps struct {
	Verification verification.Service
	Logger       *slog.Logger
}
