package model

// CreateClassRequest is the payload for registering a new class.
// Bookings and Waitlist are accepted for compatibility and ignored.
// TotalSlots is a pointer so a missing total_slots is rejected instead of
// creating a zero-seat class.
type CreateClassRequest struct {
	ClassName   string `json:"class_name" validate:"required"`
	ClassID     string `json:"class_id" validate:"required"`
	Description string `json:"class_description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	TotalSlots  *int   `json:"total_slots" validate:"required,min=0"`
	Bookings    int    `json:"bookings"`
	Waitlist    int    `json:"waitlist"`
}

// BookSlotRequest is the payload for booking a seat in a class.
// ClassName is accepted for compatibility; the stored class name wins.
type BookSlotRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	ClassName   string `json:"class_name"`
	UserName    string `json:"user_name"`
	UserID      string `json:"user_id" validate:"required"`
	BookingDate string `json:"booking_date"`
}

// CancelBookingRequest is the payload for canceling a user's booking.
type CancelBookingRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

// SaveRoadmapRequest is the payload for saving a roadmap.
type SaveRoadmapRequest struct {
	UserEmail    string           `json:"userEmail" validate:"required"`
	ProjectTitle string           `json:"projectTitle" validate:"required"`
	Nodes        []map[string]any `json:"nodes"`
	Edges        []map[string]any `json:"edges"`
}

// MessageResponse is the standard JSON success envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ProjectsResponse lists a user's roadmap titles.
type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

// RoadmapResponse carries a fetched roadmap graph.
type RoadmapResponse struct {
	Nodes []map[string]any `json:"nodes"`
	Edges []map[string]any `json:"edges"`
}

// ClassListResponse lists all classes.
type ClassListResponse struct {
	Classes []Class `json:"classes"`
}

// UserBookingsResponse lists a user's confirmed bookings.
type UserBookingsResponse struct {
	UserBookings []UserBooking `json:"user_bookings"`
}
