package service

import (
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

// applyBooking appends res to the class's bookings when a seat is free and to
// the waitlist otherwise, keeping the matching counter in step.
func applyBooking(state *model.ClassState, res model.Reservation) model.Outcome {
	res.ClassID = state.Class.ClassID
	res.ClassName = state.Class.ClassName

	if state.Record == nil {
		state.Record = &model.BookingRecord{ClassID: state.Class.ClassID}
	}

	if state.Class.IsFull() {
		state.Record.Waitlist = append(state.Record.Waitlist, res)
		state.Class.Waitlist++
		return model.OutcomeWaitlisted
	}

	state.Record.Bookings = append(state.Record.Bookings, res)
	state.Class.Bookings++
	return model.OutcomeConfirmed
}

// applyCancellation removes every confirmed reservation held by userID and
// promotes the waitlist head into the freed seat. Waitlisted reservations
// do not count: a user with no confirmed seat gets ErrBookingNotFound.
func applyCancellation(state *model.ClassState, userID string) (model.Outcome, error) {
	rec := state.Record
	if rec == nil {
		return "", repository.ErrNotFound
	}

	var removed int
	rec.Bookings, removed = removeUser(rec.Bookings, userID)
	if removed == 0 {
		return "", repository.ErrBookingNotFound
	}
	state.Class.Bookings -= removed

	if len(rec.Waitlist) > 0 && !state.Class.IsFull() {
		head := rec.Waitlist[0]
		rec.Waitlist = append(rec.Waitlist[:0:0], rec.Waitlist[1:]...)
		rec.Bookings = append(rec.Bookings, head)
		state.Class.Waitlist--
		state.Class.Bookings++
		return model.OutcomePromoted, nil
	}
	return model.OutcomeCanceled, nil
}

// removeUser returns list without userID's reservations and how many were dropped.
func removeUser(list []model.Reservation, userID string) ([]model.Reservation, int) {
	kept := list[:0:0]
	for _, r := range list {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	return kept, len(list) - len(kept)
}

// reconcile resets the counters from the list lengths. It reports whether
// anything changed.
func reconcile(state *model.ClassState) bool {
	if state.Consistent() {
		return false
	}
	state.Class.Bookings, state.Class.Waitlist = 0, 0
	if state.Record != nil {
		state.Class.Bookings = len(state.Record.Bookings)
		state.Class.Waitlist = len(state.Record.Waitlist)
	}
	return true
}
