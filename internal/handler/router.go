package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with the global middleware stack and
// every API route. Trailing slashes are optional on all routes.
func NewRouter(h *Handler, logger *slog.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(StripSlashes)
	r.Use(Logger(logger))
	r.Use(CORS(corsOrigins))

	r.Get("/", HealthCheck)

	r.Get("/projects/{email}", h.ListProjects)
	r.Route("/roadmap", func(r chi.Router) {
		r.Post("/save", h.SaveRoadmap)
		r.Get("/fetch/{email}/{project_title}", h.FetchRoadmap)
	})

	r.Post("/create_class", h.CreateClass)
	r.Post("/book_slot", h.BookSlot)
	r.Post("/cancel_booking", h.CancelBooking)
	r.Get("/class_list", h.ListClasses)
	r.Get("/user_bookings/{user_id}", h.UserBookings)

	return r
}
