// Package repository defines the storage contracts shared by the postgres,
// sqlite and in-memory backends, along with the errors they report.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
)

// ErrNotFound is returned when a requested class, booking record or roadmap
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when a class_id is registered twice.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrBookingNotFound is returned when a cancellation matches no reservation.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUpdateFailed is returned when a counter write did not apply.
var ErrUpdateFailed = errors.New("update failed")

// MutateFunc applies a transition to a loaded class state. Returning an error
// discards every change made to state.
type MutateFunc func(state *model.ClassState) error

// ClassStore persists classes and their booking records.
type ClassStore interface {
	// CreateClass inserts a new class. It returns ErrDuplicateKey when the
	// class_id already exists.
	CreateClass(ctx context.Context, class model.Class) error

	// ListClasses returns every class in creation order.
	ListClasses(ctx context.Context) ([]model.Class, error)

	// MutateClass loads the class and its booking record under an exclusive
	// per-class lock, runs fn, and persists counters and lists together.
	// It returns ErrNotFound when the class does not exist.
	MutateClass(ctx context.Context, classID string, fn MutateFunc) error

	// ListUserBookings returns every confirmed reservation held by userID.
	ListUserBookings(ctx context.Context, userID string) ([]model.UserBooking, error)
}

// RoadmapStore persists roadmaps keyed by (email, title).
type RoadmapStore interface {
	// SaveRoadmap replaces the roadmap with the same title or appends a new one.
	SaveRoadmap(ctx context.Context, email string, roadmap model.Roadmap) error

	// FetchRoadmap returns ErrNotFound when no roadmap matches.
	FetchRoadmap(ctx context.Context, email, title string) (model.Roadmap, error)

	// ListProjectTitles returns titles in first-save order.
	ListProjectTitles(ctx context.Context, email string) ([]string, error)
}
