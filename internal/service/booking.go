package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/validation"
)

// Bookings handles the booking lifecycle: a user books a date of a tour,
// may cancel it, and the tour's author decides it.
type Bookings struct {
	Bookings BookingStore
	Tours    TourStore
	Events   EventPublisher // optional
	Now      func() time.Time
}

func (s *Bookings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return nowUTC()
}

func (s *Bookings) publish(ctx context.Context, t queue.EventType, b *model.Booking) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, queue.NewBookingEvent(t, b, s.now())); err != nil {
		log.Printf("bookings: %s event for booking %d not published: %v", t, b.ID, err)
	}
}

type BookingInput struct {
	Tour         uint64 `json:"tour" validate:"required"`
	DateTour     uint64 `json:"date_tour" validate:"required"`
	Participants int    `json:"participants" validate:"required,min=1"`
}

// Create books a visible tour for the caller.  The date must belong to the
// tour and the party must fit max_participants.  The total is fixed at
// booking time.
func (s *Bookings) Create(ctx context.Context, p *authz.Principal, in BookingInput) (*model.Booking, error) {
	if err := authz.Authorize(p, authz.CapBook); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	t, err := s.Tours.GetPublished(ctx, in.Tour)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewValidationError("tour", "Указан несуществующий тур.")
	}
	if err != nil {
		return nil, err
	}
	verr := &model.ValidationError{}
	if !t.HasDate(in.DateTour) {
		verr.Add("date_tour", "Выбранная дата не относится к этому туру.")
	}
	if in.Participants > t.MaxParticipants {
		verr.Add("participants", "Превышено максимальное количество участников.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	b := &model.Booking{
		TourID:       t.ID,
		UserID:       p.UserID,
		DateTourID:   in.DateTour,
		Participants: in.Participants,
		TotalCents:   t.TotalCents(in.Participants, s.now()),
		Status:       model.BookingPending,
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, queue.BookingCreated, b)
	return b, nil
}

// Mine lists the caller's bookings.
func (s *Bookings) Mine(ctx context.Context, p *authz.Principal) ([]model.Booking, error) {
	if err := authz.Authorize(p, authz.CapBook); err != nil {
		return nil, err
	}
	return s.Bookings.ListByUser(ctx, p.UserID)
}

// Cancel deletes one of the caller's bookings.  Another user's booking is
// reported as not found and left untouched.
func (s *Bookings) Cancel(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := authz.Authorize(p, authz.CapBook); err != nil {
		return err
	}
	b, err := s.Bookings.DeleteOwnedReturning(ctx, id, p.UserID)
	if err != nil {
		return err
	}
	s.publish(ctx, queue.BookingCancelled, b)
	return nil
}

// moderationScope returns nil for platform admins, who see every booking,
// and the caller's id for elevated users.
func moderationScope(p *authz.Principal) (*uint64, error) {
	if p.PlatformAdmin() && !p.IsBlocked {
		return nil, nil
	}
	if err := authz.Authorize(p, authz.CapModerateBookings); err != nil {
		return nil, err
	}
	return &p.UserID, nil
}

// ForMyTours lists bookings made on tours the caller authored.
func (s *Bookings) ForMyTours(ctx context.Context, p *authz.Principal) ([]model.Booking, error) {
	if p == nil {
		return nil, authz.ErrUnauthenticated
	}
	scope, err := moderationScope(p)
	if err != nil {
		return nil, err
	}
	return s.Bookings.ListForAuthor(ctx, scope)
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=confirmed rejected"`
}

// SetStatus confirms or rejects a pending booking on one of the caller's
// tours.  Confirmation credits the tour author's balance.
func (s *Bookings) SetStatus(ctx context.Context, p *authz.Principal, id uint64, in StatusInput) (*model.Booking, error) {
	if p == nil {
		return nil, authz.ErrUnauthenticated
	}
	scope, err := moderationScope(p)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	to := model.BookingStatus(in.Status)
	b, err := s.Bookings.SetStatus(ctx, id, scope, to)
	if errors.Is(err, repository.ErrInvalidTransition) {
		return nil, model.NewValidationError("status", "Статус можно изменить только у ожидающего бронирования.")
	}
	if err != nil {
		return nil, err
	}
	if to == model.BookingConfirmed {
		s.publish(ctx, queue.BookingConfirmed, b)
	} else {
		s.publish(ctx, queue.BookingRejected, b)
	}
	return b, nil
}
