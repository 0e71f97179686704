package model

import "time"

// Tour is a bookable travel package.  A tour without DateTour rows is valid
// but has no bookable season.
//
// Fields:
//  AuthorID              – owner used to scope edits; nil for admin-origin tours
//                          whose author account was removed.
//  DiscountPriceCents    – optional discounted price, applied only inside
//                          the [DiscountStart, DiscountEnd] window.
//  ParticipantPriceCents – surcharge per participant beyond the first.
//  IsAdmin               – tour created by a platform administrator.
//  IsBlocked             – hidden from public listings by moderation.
type Tour struct {
	ID                    uint64     // tours.id
	Author                string     // tours.author
	AuthorID              *uint64    // tours.author_id (nullable)
	Title                 string     // tours.title
	Description           string     // tours.description
	Route                 string     // tours.route
	DurationDays          int        // tours.duration_days
	PriceCents            int64      // tours.price_cents
	DiscountPriceCents    *int64     // tours.discount_price_cents (nullable)
	DiscountStart         *time.Time // tours.discount_start (nullable)
	DiscountEnd           *time.Time // tours.discount_end (nullable)
	ParticipantPriceCents int64      // tours.participant_price_cents
	MaxParticipants       int        // tours.max_participants
	IsPublished           bool       // tours.is_published
	IsAdmin               bool       // tours.is_admin
	IsBlocked             bool       // tours.is_blocked
	CreatedAt             time.Time  // tours.created_at
	UpdatedAt             time.Time  // tours.updated_at

	Categories []Category
	Regions    []RegionTour
	Dates      []DateTour
	Images     []TourImage
}

// HasDate reports whether the DateTour id is attached to the tour.
func (t *Tour) HasDate(id uint64) bool {
	for _, d := range t.Dates {
		if d.ID == id {
			return true
		}
	}
	return false
}

// EffectivePriceCents returns the discount price when one is set and now
// lies inside the discount window.  A missing window bound is open.
func (t *Tour) EffectivePriceCents(now time.Time) int64 {
	if t.DiscountPriceCents == nil {
		return t.PriceCents
	}
	if t.DiscountStart != nil && now.Before(*t.DiscountStart) {
		return t.PriceCents
	}
	if t.DiscountEnd != nil && now.After(*t.DiscountEnd) {
		return t.PriceCents
	}
	return *t.DiscountPriceCents
}

// TotalCents is the booking price for the given number of participants:
// the effective price covers the first participant and every additional
// one adds the participant price.
func (t *Tour) TotalCents(participants int, now time.Time) int64 {
	if participants < 1 {
		return 0
	}
	return t.EffectivePriceCents(now) + t.ParticipantPriceCents*int64(participants-1)
}

// TourRelations holds the ids of existing rows a tour links to.  A nil
// slice means "leave as is" on update; an empty slice clears the links.
type TourRelations struct {
	CategoryIDs []uint64
	RegionIDs   []uint64
	DateIDs     []uint64
	ImageIDs    []uint64
}

// TourPatch lists the mutable tour columns; nil fields are kept.
type TourPatch struct {
	Title                 *string
	Description           *string
	Route                 *string
	DurationDays          *int
	PriceCents            *int64
	DiscountPriceCents    *int64
	DiscountStart         *time.Time
	DiscountEnd           *time.Time
	ParticipantPriceCents *int64
	MaxParticipants       *int
	IsPublished           *bool
}

// Apply copies the set fields of p onto t.
func (p TourPatch) Apply(t *Tour) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Route != nil {
		t.Route = *p.Route
	}
	if p.DurationDays != nil {
		t.DurationDays = *p.DurationDays
	}
	if p.PriceCents != nil {
		t.PriceCents = *p.PriceCents
	}
	if p.DiscountPriceCents != nil {
		t.DiscountPriceCents = p.DiscountPriceCents
	}
	if p.DiscountStart != nil {
		t.DiscountStart = p.DiscountStart
	}
	if p.DiscountEnd != nil {
		t.DiscountEnd = p.DiscountEnd
	}
	if p.ParticipantPriceCents != nil {
		t.ParticipantPriceCents = *p.ParticipantPriceCents
	}
	if p.MaxParticipants != nil {
		t.MaxParticipants = *p.MaxParticipants
	}
	if p.IsPublished != nil {
		t.IsPublished = *p.IsPublished
	}
}

// ValidatePricing checks the invariants that span several columns.
func (t *Tour) ValidatePricing() error {
	verr := &ValidationError{}
	if t.DiscountPriceCents != nil && *t.DiscountPriceCents > t.PriceCents {
		verr.Add("discount_price", "Цена со скидкой не может превышать цену.")
	}
	if t.DiscountStart != nil && t.DiscountEnd != nil && t.DiscountEnd.Before(*t.DiscountStart) {
		verr.Add("discount_end_date", "Дата окончания скидки не может быть раньше даты начала.")
	}
	if t.MaxParticipants < 1 {
		verr.Add("max_participants", "Значение должно быть не меньше 1.")
	}
	return verr.OrNil()
}

// RatedTour pairs a tour with its average rating.  AverageRating is nil
// when the tour has no ratings.
type RatedTour struct {
	Tour
	AverageRating *float64
}
