// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/logging"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

const tracerName = "github.com/Shivanand-hulikatti/roadmap-class-booking/internal/service"

// ErrInvalidInput is returned when a request fails validation.
var ErrInvalidInput = errors.New("invalid input")

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// BookingService owns the capacity and waitlist state machine.
type BookingService struct {
	classes repository.ClassStore
	tracer  trace.Tracer
}

// NewBookingService constructs a BookingService with its store.
func NewBookingService(classes repository.ClassStore) *BookingService {
	return &BookingService{classes: classes, tracer: otel.Tracer(tracerName)}
}

// RegisterClass validates the request and creates a class with zeroed
// counters. class_id is stored exactly as sent, matching the lookups done
// by BookSlot and CancelBooking. It returns repository.ErrDuplicateKey when
// class_id is taken.
func (s *BookingService) RegisterClass(ctx context.Context, req model.CreateClassRequest) (err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.RegisterClass",
		trace.WithAttributes(attribute.String("class.id", req.ClassID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.ClassID) == "" {
		return invalid("class_id is required")
	}
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.ClassName == "" {
		return invalid("class_name is required")
	}
	if req.TotalSlots == nil {
		return invalid("total_slots is required")
	}
	if *req.TotalSlots < 0 {
		return invalid("total_slots must not be negative")
	}

	class := model.Class{
		ClassID:     req.ClassID,
		ClassName:   req.ClassName,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		TotalSlots:  *req.TotalSlots,
	}
	if err := s.classes.CreateClass(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("register class: %w", err)
	}

	logging.FromContext(ctx).Info("class registered", "class_id", class.ClassID, "total_slots", class.TotalSlots)
	return nil
}

// BookSlot reserves a seat for the user, or places them on the waitlist when
// the class is full.
func (s *BookingService) BookSlot(ctx context.Context, req model.BookSlotRequest) (outcome model.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.BookSlot",
		trace.WithAttributes(attribute.String("class.id", req.ClassID), attribute.String("user.id", req.UserID)))
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
		endSpan(span, err)
	}()

	if strings.TrimSpace(req.ClassID) == "" {
		return "", invalid("class_id is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "", invalid("user_id is required")
	}

	res := model.Reservation{
		UserID:      req.UserID,
		UserName:    req.UserName,
		BookingDate: req.BookingDate,
	}
	err = s.classes.MutateClass(ctx, req.ClassID, func(state *model.ClassState) error {
		s.reconcile(ctx, state)
		outcome = applyBooking(state, res)
		return checkConsistent(state)
	})
	if err != nil {
		return "", wrapStoreErr("book slot", err)
	}

	logging.FromContext(ctx).Info("slot booked", "class_id", req.ClassID, "user_id", req.UserID, "outcome", outcome)
	return outcome, nil
}

// CancelBooking removes the user's confirmed reservations and promotes the
// head of the waitlist when one is waiting.
func (s *BookingService) CancelBooking(ctx context.Context, req model.CancelBookingRequest) (outcome model.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.CancelBooking",
		trace.WithAttributes(attribute.String("class.id", req.ClassID), attribute.String("user.id", req.UserID)))
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
		endSpan(span, err)
	}()

	if strings.TrimSpace(req.ClassID) == "" {
		return "", invalid("class_id is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "", invalid("user_id is required")
	}

	err = s.classes.MutateClass(ctx, req.ClassID, func(state *model.ClassState) error {
		s.reconcile(ctx, state)
		var terr error
		outcome, terr = applyCancellation(state, req.UserID)
		if terr != nil {
			return terr
		}
		return checkConsistent(state)
	})
	if err != nil {
		return "", wrapStoreErr("cancel booking", err)
	}

	logging.FromContext(ctx).Info("booking canceled", "class_id", req.ClassID, "user_id", req.UserID, "outcome", outcome)
	return outcome, nil
}

// ListClasses returns every class.
func (s *BookingService) ListClasses(ctx context.Context) (classes []model.Class, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.ListClasses")
	defer func() { endSpan(span, err) }()

	classes, err = s.classes.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if classes == nil {
		classes = []model.Class{}
	}
	return classes, nil
}

// ListUserBookings returns the user's confirmed reservations. An empty result
// is reported as repository.ErrNotFound.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) (bookings []model.UserBooking, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.ListUserBookings",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	bookings, err = s.classes.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil, repository.ErrNotFound
	}
	return bookings, nil
}

// reconcile repairs counters that drifted from the stored lists before a
// transition is applied.
func (s *BookingService) reconcile(ctx context.Context, state *model.ClassState) {
	before := state.Class
	if reconcile(state) {
		logging.FromContext(ctx).Warn("class counters out of sync, reconciled from booking lists",
			"class_id", state.Class.ClassID,
			"bookings_was", before.Bookings, "waitlist_was", before.Waitlist,
			"bookings", state.Class.Bookings, "waitlist", state.Class.Waitlist)
	}
}

func checkConsistent(state *model.ClassState) error {
	if !state.Consistent() {
		return fmt.Errorf("%w: class %s counters out of sync with booking lists", repository.ErrUpdateFailed, state.Class.ClassID)
	}
	return nil
}

// wrapStoreErr keeps domain sentinels bare so handlers can match them, and
// wraps anything else with the operation name.
func wrapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUpdateFailed):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
