package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/validation"
)

// Admin groups platform moderation and catalog management.  Every method
// requires authz.CapAdministrate.
type Admin struct {
	Users     UserStore
	Tours     TourStore
	Bookings  BookingStore
	Feedbacks FeedbackStore
	Items     CatalogStore
	Assets    AssetStore
}

func (s *Admin) ListUsers(ctx context.Context, p *authz.Principal) ([]model.User, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	return s.Users.List(ctx)
}

// ToggleUserBlocked flips the blocked flag and returns the new value.
func (s *Admin) ToggleUserBlocked(ctx context.Context, p *authz.Principal, id uint64) (bool, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return false, err
	}
	return s.Users.ToggleBlocked(ctx, id)
}

func (s *Admin) DeleteUser(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return err
	}
	return s.Users.Delete(ctx, id)
}

// DeleteTour removes a tour with its bookings, ratings, feedback and links.
func (s *Admin) DeleteTour(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return err
	}
	return s.Tours.Delete(ctx, id)
}

// ToggleTourBlocked hides or re-shows a tour on public reads.
func (s *Admin) ToggleTourBlocked(ctx context.Context, p *authz.Principal, id uint64) (bool, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return false, err
	}
	return s.Tours.ToggleBlocked(ctx, id)
}

func (s *Admin) Statistics(ctx context.Context, p *authz.Principal) (*model.Statistics, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	var st model.Statistics
	var err error
	if st.TotalUsers, err = s.Users.Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalBookings, err = s.Bookings.Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalTours, err = s.Tours.Count(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

// DeleteFeedback removes a comment without replies.
func (s *Admin) DeleteFeedback(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return err
	}
	return s.Feedbacks.DeleteLeaf(ctx, id)
}

// ---------- banners ----------

type BannerInput struct {
	Title    string `json:"title" form:"title" validate:"required,max=100"`
	Image    string `json:"image" form:"image" validate:"max=255"`
	IsActive *bool  `json:"is_active" form:"is_active"`
}

// CreateBanner stores a banner.  The image is either an uploaded file or a
// path given in the body.
func (s *Admin) CreateBanner(ctx context.Context, p *authz.Principal, in BannerInput, up *Upload) (*model.Banner, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if up == nil && strings.TrimSpace(in.Image) == "" {
		return nil, model.NewValidationError("image", "Обязательное поле.")
	}
	if up != nil && up.Size > MaxImageBytes {
		return nil, model.NewValidationError("image", "Размер изображения не должен превышать 10MB.")
	}
	b := &model.Banner{Title: in.Title, Image: strings.TrimSpace(in.Image), IsActive: true}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if up != nil {
		path, err := saveUpload(ctx, s.Assets, "banners", "image", up)
		if err != nil {
			return nil, err
		}
		b.Image = path
	}
	if err := s.Items.CreateBanner(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

type BannerPatchInput struct {
	Title    *string `json:"title" form:"title" validate:"omitempty,min=1,max=100"`
	Image    *string `json:"image" form:"image" validate:"omitempty,min=1,max=255"`
	IsActive *bool  `json:"is_active" form:"is_active"`
}

func (s *Admin) UpdateBanner(ctx context.Context, p *authz.Principal, id uint64, in BannerPatchInput, up *Upload) (*model.Banner, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if up != nil && up.Size > MaxImageBytes {
		return nil, model.NewValidationError("image", "Размер изображения не должен превышать 10MB.")
	}
	if _, err := s.Items.GetBanner(ctx, id); err != nil {
		return nil, err
	}
	patch := model.BannerPatch{Title: trimmed(in.Title), Image: in.Image, IsActive: in.IsActive}
	if up != nil {
		path, err := saveUpload(ctx, s.Assets, "banners", "image", up)
		if err != nil {
			return nil, err
		}
		patch.Image = &path
	}
	return s.Items.UpdateBanner(ctx, id, patch)
}

func (s *Admin) DeleteBanner(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return err
	}
	return s.Items.DeleteBanner(ctx, id)
}

// ---------- categories and regions ----------

type CategoryInput struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description"`
	Slug        *string `json:"slug" validate:"omitempty,max=100"`
}

// CreateCategory stores a category, deriving the slug from the title when
// none is given.
func (s *Admin) CreateCategory(ctx context.Context, p *authz.Principal, in CategoryInput) (*model.Category, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c := &model.Category{Title: in.Title, Description: in.Description, Slug: optionalString(in.Slug)}
	if err := s.Items.CreateCategory(ctx, c); err != nil {
		return nil, slugConflict(err)
	}
	return c, nil
}

type CategoryPatchInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Slug        *string `json:"slug" validate:"omitempty,max=100"`
}

// UpdateCategory edits a category.  The existing slug is kept unless a new
// one is supplied.
func (s *Admin) UpdateCategory(ctx context.Context, p *authz.Principal, id uint64, in CategoryPatchInput) (*model.Category, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.Items.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if slug := optionalString(in.Slug); slug != nil {
		c.Slug = slug
	}
	if err := s.Items.SaveCategory(ctx, c); err != nil {
		return nil, slugConflict(err)
	}
	return c, nil
}

type RegionInput struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description"`
	Image       *string `json:"image" validate:"omitempty,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,max=100"`
}

func (s *Admin) CreateRegion(ctx context.Context, p *authz.Principal, in RegionInput) (*model.RegionTour, error) {
	if err := authz.Authorize(p, authz.CapAdministrate); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r := &model.RegionTour{
		Title:       in.Title,
		Description: in.Description,
		Image:       optionalString(in.Image),
		Slug:        optionalString(in.Slug),
	}
	if err := s.Items.CreateRegion(ctx, r); err != nil {
		return nil, slugConflict(err)
	}
	return r, nil
}

func slugConflict(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return model.NewValidationError("slug", "Объект с таким slug уже существует.")
	}
	return err
}
