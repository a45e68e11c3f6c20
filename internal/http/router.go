package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/textfolk/server/internal/http/handlers"
	"github.com/textfolk/server/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured. The
// signature middleware is applied to the webhook only when an auth token and
// public URL are configured.
func NewRouter(smsHandler *handlers.SMSHandler, twilioAuthToken, publicURL string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		if twilioAuthToken != "" && publicURL != "" {
			r.Use(middleware.TwilioSignature(twilioAuthToken, publicURL))
		}
		r.Post("/sms", smsHandler.HandleInbound)
	})

	return r
}
