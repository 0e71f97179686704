package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected:
		return true
	}
	return false
}

// CanTransition reports whether a booking in state s may move to next.
// Only pending bookings are decided; decisions are final.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	return s == BookingPending && (next == BookingConfirmed || next == BookingRejected)
}

// Booking is a user's reservation of a tour on a given DateTour.  Bookings
// are created pending by the user, decided by an elevated actor and hard
// deleted on cancellation.
type Booking struct {
	ID           uint64        // bookings.id
	TourID       uint64        // bookings.tour_id
	UserID       uint64        // bookings.user_id
	DateTourID   uint64        // bookings.date_tour_id
	Participants int           // bookings.participants
	TotalCents   int64         // bookings.total_cents
	Status       BookingStatus // bookings.status
	CreatedAt    time.Time     // bookings.created_at
	UpdatedAt    time.Time     // bookings.updated_at

	TourTitle string // joined from tours.title for listings
}

// Favorite is a user's bookmark of a tour, unique per pair.
type Favorite struct {
	ID        uint64    // favorites.id
	TourID    uint64    // favorites.tour_id
	UserID    uint64    // favorites.user_id
	AddedAt   time.Time // favorites.added_at
	TourTitle string    // joined from tours.title
}
