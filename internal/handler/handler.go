// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/logging"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/service"
)

const (
	maxBodyBytes        = 1 << 20  // 1 MB
	maxRoadmapBodyBytes = 16 << 20 // roadmaps carry whole graphs
)

// Handler holds all HTTP handlers for the roadmap and booking API.
type Handler struct {
	bookings *service.BookingService
	roadmaps *service.RoadmapService
	validate *validator.Validate
}

// New constructs a Handler.
func New(bookings *service.BookingService, roadmaps *service.RoadmapService) *Handler {
	return &Handler{
		bookings: bookings,
		roadmaps: roadmaps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// decode reads a JSON body of at most limit bytes into dst and validates it.
// Unknown fields are ignored so older clients keep working.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// pathParam returns the decoded value of a route parameter. chi matches on
// r.URL.RawPath when it is set, so only then is the value still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// internalError logs err and replies 500 with prefix and the raw error text.
func internalError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, prefix+err.Error())
}

// ─── Roadmaps ─────────────────────────────────────────────────────────────────

// ListProjects handles GET /projects/{email}
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	titles, err := h.roadmaps.ListProjectTitles(r.Context(), pathParam(r, "email"))
	if err != nil {
		internalError(w, r, "Failed to fetch projects: ", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ProjectsResponse{Projects: titles})
}

// SaveRoadmap handles POST /roadmap/save
func (h *Handler) SaveRoadmap(w http.ResponseWriter, r *http.Request) {
	var req model.SaveRoadmapRequest
	if err := h.decode(w, r, maxRoadmapBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.roadmaps.SaveRoadmap(r.Context(), req); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, "Failed to save roadmap: ", err)
		return
	}
	writeMessage(w, "Roadmap saved successfully")
}

// FetchRoadmap handles GET /roadmap/fetch/{email}/{project_title}
func (h *Handler) FetchRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.roadmaps.FetchRoadmap(r.Context(), pathParam(r, "email"), pathParam(r, "project_title"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Roadmap not found")
			return
		}
		internalError(w, r, "Failed to fetch roadmap: ", err)
		return
	}
	writeJSON(w, http.StatusOK, model.RoadmapResponse{Nodes: rm.Nodes, Edges: rm.Edges})
}

// ─── Classes and bookings ─────────────────────────────────────────────────────

// CreateClass handles POST /create_class/
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req model.CreateClassRequest
	if err := h.decode(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.bookings.RegisterClass(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			writeError(w, http.StatusBadRequest, "Class ID already exists")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "", err)
		}
		return
	}
	writeMessage(w, "Class created successfully")
}

// BookSlot handles POST /book_slot/
// Confirms the booking when a seat is free, otherwise waitlists it.
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	var req model.BookSlotRequest
	if err := h.decode(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.bookings.BookSlot(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Class not found")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "", err)
		}
		return
	}

	if outcome == model.OutcomeWaitlisted {
		writeMessage(w, "Added to waitlist")
		return
	}
	writeMessage(w, "Booking confirmed")
}

// CancelBooking handles POST /cancel_booking/
// Removes the user's bookings and promotes the head of the waitlist.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CancelBookingRequest
	if err := h.decode(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.bookings.CancelBooking(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Class not found")
		case errors.Is(err, repository.ErrBookingNotFound):
			writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, repository.ErrUpdateFailed):
			logging.FromContext(r.Context()).Error("class counter update failed", "class_id", req.ClassID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update class bookings")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "", err)
		}
		return
	}

	if outcome == model.OutcomePromoted {
		writeMessage(w, "Booking canceled, waitlist updated")
		return
	}
	writeMessage(w, "Booking canceled successfully")
}

// ListClasses handles GET /class_list/
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.bookings.ListClasses(r.Context())
	if err != nil {
		internalError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ClassListResponse{Classes: classes})
}

// UserBookings handles GET /user_bookings/{user_id}
func (h *Handler) UserBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListUserBookings(r.Context(), pathParam(r, "user_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No bookings found for this user")
			return
		}
		internalError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, model.UserBookingsResponse{UserBookings: bookings})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, "API is running with no issues")
}
