package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/validation"
)

// MaxImageBytes is the largest accepted tour or banner image.
const MaxImageBytes = 10 << 20

// Authoring lets elevated users manage their own tours.
type Authoring struct {
	Tours   TourStore
	Ratings RatingStore
	Items   CatalogStore
	Assets  AssetStore
}

// DateInput is a new DateTour created together with a tour.
type DateInput struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	TourType  string `json:"tour_type" validate:"required,oneof=group individual"`
	Season    string `json:"season" validate:"required,oneof=spring summer autumn winter"`
}

// TourInput is the body of POST /profile/tours/create.  Prices are in
// major units.
type TourInput struct {
	Title             string      `json:"title" validate:"required,max=100"`
	Description       string      `json:"description" validate:"required,max=500"`
	Route             string      `json:"route" validate:"required,max=200"`
	Duration          int         `json:"duration" validate:"required,min=1"`
	Price             float64     `json:"price" validate:"gte=0"`
	DiscountPrice     *float64    `json:"discount_price" validate:"omitempty,gte=0"`
	DiscountStartDate string      `json:"discount_start_date"`
	DiscountEndDate   string      `json:"discount_end_date"`
	ParticipantPrice  float64     `json:"participant_price" validate:"gte=0"`
	MaxParticipants   int         `json:"max_participants" validate:"required,min=1"`
	IsPublished       bool        `json:"is_published"`
	CategoryIDs       []uint64    `json:"category_ids"`
	RegionIDs         []uint64    `json:"region_ids"`
	DateIDs           []uint64    `json:"date_ids"`
	ImageIDs          []uint64    `json:"image_ids"`
	Dates             []DateInput `json:"dates" validate:"omitempty,dive"`
}

// TourPatchInput is the body of PATCH /profile/tours/:id/edit.  Absent
// fields are kept; an id list that is present replaces the links, an empty
// list clears them.
type TourPatchInput struct {
	Title             *string     `json:"title" validate:"omitempty,min=1,max=100"`
	Description       *string     `json:"description" validate:"omitempty,min=1,max=500"`
	Route             *string     `json:"route" validate:"omitempty,min=1,max=200"`
	Duration          *int        `json:"duration" validate:"omitempty,min=1"`
	Price             *float64    `json:"price" validate:"omitempty,gte=0"`
	DiscountPrice     *float64    `json:"discount_price" validate:"omitempty,gte=0"`
	DiscountStartDate *string     `json:"discount_start_date"`
	DiscountEndDate   *string     `json:"discount_end_date"`
	ParticipantPrice  *float64    `json:"participant_price" validate:"omitempty,gte=0"`
	MaxParticipants   *int        `json:"max_participants" validate:"omitempty,min=1"`
	IsPublished       *bool       `json:"is_published"`
	CategoryIDs       []uint64    `json:"category_ids"`
	RegionIDs         []uint64    `json:"region_ids"`
	DateIDs           []uint64    `json:"date_ids"`
	ImageIDs          []uint64    `json:"image_ids"`
	Dates             []DateInput `json:"dates" validate:"omitempty,dive"`
}

// buildDates converts and validates every new date before anything is
// written; messages are keyed as "dates[i].field".
func buildDates(in []DateInput) ([]model.DateTour, error) {
	verr := &model.ValidationError{}
	out := make([]model.DateTour, 0, len(in))
	for i, d := range in {
		prefix := fmt.Sprintf("dates[%d].", i)
		start, err1 := parseDate("start_date", d.StartDate)
		end, err2 := parseDate("end_date", d.EndDate)
		for _, err := range []error{err1, err2} {
			var v *model.ValidationError
			if errors.As(err, &v) {
				verr.Merge(prefix, v)
			}
		}
		if err1 != nil || err2 != nil {
			continue
		}
		dt := model.DateTour{
			StartDate: start,
			EndDate:   end,
			TourType:  model.TourType(strings.ToLower(d.TourType)),
			Season:    model.Season(strings.ToLower(d.Season)),
		}
		if err := dt.Validate(); err != nil {
			var v *model.ValidationError
			if errors.As(err, &v) {
				verr.Merge(prefix, v)
			}
			continue
		}
		out = append(out, dt)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// collect merges field errors into verr and returns any other error.
func collect(verr *model.ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var v *model.ValidationError
	if errors.As(err, &v) {
		verr.Merge("", v)
		return nil
	}
	return err
}

// CreateTour stores a tour authored by the caller together with its links
// and new dates, all in one transaction.
func (s *Authoring) CreateTour(ctx context.Context, p *authz.Principal, in TourInput) (*model.RatedTour, error) {
	if err := authz.Authorize(p, authz.CapAuthorTours); err != nil {
		return nil, err
	}
	verr := &model.ValidationError{}
	if err := collect(verr, validation.Struct(in)); err != nil {
		return nil, err
	}

	start, err := parseDateTime("discount_start_date", in.DiscountStartDate)
	if err := collect(verr, err); err != nil {
		return nil, err
	}
	end, err := parseDateTime("discount_end_date", in.DiscountEndDate)
	if err := collect(verr, err); err != nil {
		return nil, err
	}
	dates, err := buildDates(in.Dates)
	if err := collect(verr, err); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	t := &model.Tour{
		Author:                p.Username,
		AuthorID:              &p.UserID,
		Title:                 strings.TrimSpace(in.Title),
		Description:           strings.TrimSpace(in.Description),
		Route:                 strings.TrimSpace(in.Route),
		DurationDays:          in.Duration,
		PriceCents:            toCents(in.Price),
		DiscountStart:         start,
		DiscountEnd:           end,
		ParticipantPriceCents: toCents(in.ParticipantPrice),
		MaxParticipants:       in.MaxParticipants,
		IsPublished:           in.IsPublished,
		IsAdmin:               p.PlatformAdmin(),
	}
	if in.DiscountPrice != nil {
		t.DiscountPriceCents = ptr(toCents(*in.DiscountPrice))
	}
	if err := t.ValidatePricing(); err != nil {
		return nil, err
	}

	rel := model.TourRelations{
		CategoryIDs: in.CategoryIDs,
		RegionIDs:   in.RegionIDs,
		DateIDs:     in.DateIDs,
		ImageIDs:    in.ImageIDs,
	}
	if err := s.Tours.Create(ctx, t, rel, dates); err != nil {
		return nil, referenceToValidation(err)
	}
	stored, err := s.Tours.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &model.RatedTour{Tour: *stored}, nil
}

// EditTour patches a tour the caller authored.  Someone else's tour is
// reported as not found.
func (s *Authoring) EditTour(ctx context.Context, p *authz.Principal, id uint64, in TourPatchInput) (*model.RatedTour, error) {
	if err := authz.Authorize(p, authz.CapAuthorTours); err != nil {
		return nil, err
	}
	verr := &model.ValidationError{}
	if err := collect(verr, validation.Struct(in)); err != nil {
		return nil, err
	}

	patch := model.TourPatch{
		Title:           trimmed(in.Title),
		Description:     trimmed(in.Description),
		Route:           trimmed(in.Route),
		DurationDays:    in.Duration,
		MaxParticipants: in.MaxParticipants,
		IsPublished:     in.IsPublished,
	}
	if in.Price != nil {
		patch.PriceCents = ptr(toCents(*in.Price))
	}
	if in.DiscountPrice != nil {
		patch.DiscountPriceCents = ptr(toCents(*in.DiscountPrice))
	}
	if in.ParticipantPrice != nil {
		patch.ParticipantPriceCents = ptr(toCents(*in.ParticipantPrice))
	}
	if in.DiscountStartDate != nil {
		t, err := parseDateTime("discount_start_date", *in.DiscountStartDate)
		if err := collect(verr, err); err != nil {
			return nil, err
		}
		patch.DiscountStart = t
	}
	if in.DiscountEndDate != nil {
		t, err := parseDateTime("discount_end_date", *in.DiscountEndDate)
		if err := collect(verr, err); err != nil {
			return nil, err
		}
		patch.DiscountEnd = t
	}
	dates, err := buildDates(in.Dates)
	if err := collect(verr, err); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	rel := model.TourRelations{
		CategoryIDs: in.CategoryIDs,
		RegionIDs:   in.RegionIDs,
		DateIDs:     in.DateIDs,
		ImageIDs:    in.ImageIDs,
	}
	t, err := s.Tours.UpdateOwned(ctx, id, p.UserID, patch, rel, dates)
	if err != nil {
		return nil, referenceToValidation(err)
	}
	rated, err := withRatings(ctx, s.Ratings, []model.Tour{*t})
	if err != nil {
		return nil, err
	}
	return &rated[0], nil
}

// MyTours lists the caller's tours, published or not.
func (s *Authoring) MyTours(ctx context.Context, p *authz.Principal) ([]model.RatedTour, error) {
	if err := authz.Authorize(p, authz.CapAuthorTours); err != nil {
		return nil, err
	}
	tours, err := s.Tours.ListByAuthor(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return withRatings(ctx, s.Ratings, tours)
}

// UploadImage stores a shared tour image that tours can then link by id.
func (s *Authoring) UploadImage(ctx context.Context, p *authz.Principal, up *Upload) (*model.TourImage, error) {
	if err := authz.Authorize(p, authz.CapAuthorTours); err != nil {
		return nil, err
	}
	if up == nil {
		return nil, model.NewValidationError("image", "Обязательное поле.")
	}
	if up.Size > MaxImageBytes {
		return nil, model.NewValidationError("image", "Размер изображения не должен превышать 10MB.")
	}
	path, err := saveUpload(ctx, s.Assets, "tours", "image", up)
	if err != nil {
		return nil, err
	}
	img := &model.TourImage{Image: path}
	if err := s.Items.CreateImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return ptr(strings.TrimSpace(*s))
}
