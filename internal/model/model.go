// Package model defines the core domain types for the class booking and
// roadmap system.
package model

// Class represents a schedulable offering with a fixed seat capacity.
// Bookings and Waitlist mirror the lengths of the class's BookingRecord.
type Class struct {
	ID          string `json:"_id"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
	Description string `json:"class_description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	TotalSlots  int    `json:"total_slots"`
	Bookings    int    `json:"bookings"`
	Waitlist    int    `json:"waitlist"`
}

// Remaining returns the number of free confirmed seats.
func (c *Class) Remaining() int {
	if c.Bookings >= c.TotalSlots {
		return 0
	}
	return c.TotalSlots - c.Bookings
}

// IsFull returns true when no seats remain.
func (c *Class) IsFull() bool {
	return c.Bookings >= c.TotalSlots
}

// Reservation is one user's claim on a class, either confirmed or waitlisted.
// ClassName is copied from the class at booking time and is not refreshed
// afterwards.
type Reservation struct {
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	BookingDate string `json:"booking_date"`
}

// BookingRecord holds the confirmed bookings and the FIFO waitlist of a class.
type BookingRecord struct {
	ClassID  string        `json:"class_id"`
	Bookings []Reservation `json:"bookings"`
	Waitlist []Reservation `json:"waitlist"`
}

// Clone returns a deep copy of the record.
func (r *BookingRecord) Clone() *BookingRecord {
	if r == nil {
		return nil
	}
	return &BookingRecord{
		ClassID:  r.ClassID,
		Bookings: append([]Reservation(nil), r.Bookings...),
		Waitlist: append([]Reservation(nil), r.Waitlist...),
	}
}

// ClassState is the unit a booking transition operates on: one class and its
// booking record. Record is nil until the first reservation is made.
type ClassState struct {
	Class  Class
	Record *BookingRecord
}

// Consistent reports whether the class counters match the record lists.
func (s *ClassState) Consistent() bool {
	var booked, waiting int
	if s.Record != nil {
		booked, waiting = len(s.Record.Bookings), len(s.Record.Waitlist)
	}
	return s.Class.Bookings == booked &&
		s.Class.Waitlist == waiting &&
		s.Class.Bookings >= 0 &&
		s.Class.Waitlist >= 0
}

// UserBooking is one confirmed reservation as listed for a user.
type UserBooking struct {
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
	BookingDate string `json:"booking_date"`
}

// Outcome is the result of a booking or cancellation.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeWaitlisted Outcome = "waitlisted"
	OutcomeCanceled   Outcome = "canceled"
	OutcomePromoted   Outcome = "promoted"
)

// Roadmap is a user-authored graph document stored under a project title.
type Roadmap struct {
	Title string           `json:"title"`
	Nodes []map[string]any `json:"nodes"`
	Edges []map[string]any `json:"edges"`
}
