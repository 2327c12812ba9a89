package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r chi.Router, app *App) {
	r.Get("/healthz", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/events", app.createEvent)
	r.Get("/events", app.listEventsHandler)
	r.Get("/notifications", app.listNotificationsHandler)
	r.Get("/notifications/{recipient}", app.recipientNotificationsHandler)
	r.Get("/escalations", app.listEscalationsHandler)
	r.Get("/routing/events", app.supportedEventsHandler)
	r.Get("/recipients/{recipient}", app.getRecipientHandler)
	r.Put("/recipients/{recipient}", app.putRecipientHandler)
}

// NewRouter returns a router with the standard middleware and every route.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	RegisterRoutes(r, app)
	return r
}
