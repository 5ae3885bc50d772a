package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/transport/http/handler"
	appmiddleware "github.com/go-phone-verify/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	phoneH := handler.NewPhoneHandler(deps.Verification)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)

	r.Route("/phone", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType(
			"application/json",
			"application/x-www-form-urlencoded",
			"multipart/form-data",
		))
		r.Post("/register", phoneH.Register)
		r.Post("/verify", phoneH.Verify)
	})

	return r
}
