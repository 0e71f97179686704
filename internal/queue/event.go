// Package queue defines booking lifecycle messages and moves them over
// RabbitMQ: a publisher used by the API and a consumer that appends them to
// an audit log.
package queue

import (
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// BookingQueue is the durable queue every booking event is routed to.
const BookingQueue = "booking.events"

// EventType names the booking transition an event reports.
type EventType string

const (
	BookingCreated   EventType = "booking.created"
	BookingCancelled EventType = "booking.cancelled"
	BookingConfirmed EventType = "booking.confirmed"
	BookingRejected  EventType = "booking.rejected"
)

// BookingEvent carries enough of the booking for consumers to log or notify
// without querying the database.
type BookingEvent struct {
	Type         EventType `json:"type"`
	BookingID    uint64    `json:"booking_id"`
	TourID       uint64    `json:"tour_id"`
	TourTitle    string    `json:"tour_title"`
	UserID       uint64    `json:"user_id"`
	DateTourID   uint64    `json:"date_tour_id"`
	Participants int       `json:"participants"`
	TotalCents   int64     `json:"total_cents"`
	Status       string    `json:"status"`
	OccurredAt   string    `json:"occurred_at"`
}

// NewBookingEvent snapshots b as an event of type t.
func NewBookingEvent(t EventType, b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:         t,
		BookingID:    b.ID,
		TourID:       b.TourID,
		TourTitle:    b.TourTitle,
		UserID:       b.UserID,
		DateTourID:   b.DateTourID,
		Participants: b.Participants,
		TotalCents:   b.TotalCents,
		Status:       string(b.Status),
		OccurredAt:   at.UTC().Format(time.RFC3339),
	}
}
