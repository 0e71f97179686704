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

// TopToursLimit caps the landing-page tour list.
const TopToursLimit = 4

// Catalog serves the public read side: tours, feedback, banners, regions
// and categories, plus anonymous feedback and authenticated ratings.
type Catalog struct {
	Tours     TourStore
	Ratings   RatingStore
	Feedbacks FeedbackStore
	Items     CatalogStore
}

// withRatings annotates tours with their average rating, keeping order.
func withRatings(ctx context.Context, ratings RatingStore, tours []model.Tour) ([]model.RatedTour, error) {
	ids := make([]uint64, len(tours))
	for i := range tours {
		ids[i] = tours[i].ID
	}
	scores, err := ratings.ScoresByTour(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.RatedTour, len(tours))
	for i := range tours {
		out[i] = model.RatedTour{Tour: tours[i], AverageRating: model.AverageRating(scores[tours[i].ID])}
	}
	return out, nil
}

// TopTours returns at most TopToursLimit visible tours, best rated first.
func (s *Catalog) TopTours(ctx context.Context) ([]model.RatedTour, error) {
	return s.Tours.TopRated(ctx, TopToursLimit)
}

// ToursBySeason lists visible tours with a date in season.  An empty season
// lists every visible tour.
func (s *Catalog) ToursBySeason(ctx context.Context, season string) ([]model.RatedTour, error) {
	season = strings.ToLower(strings.TrimSpace(season))
	var (
		tours []model.Tour
		err   error
	)
	if season == "" {
		tours, err = s.Tours.ListPublished(ctx)
	} else {
		se := model.Season(season)
		if !se.Valid() {
			return nil, model.NewValidationError("season", "Допустимые значения: spring, summer, autumn, winter.")
		}
		tours, err = s.Tours.ListPublishedBySeason(ctx, se)
	}
	if err != nil {
		return nil, err
	}
	return withRatings(ctx, s.Ratings, tours)
}

// SearchTours matches term against title, description and route.
func (s *Catalog) SearchTours(ctx context.Context, term string) ([]model.RatedTour, error) {
	tours, err := s.Tours.SearchPublished(ctx, term)
	if err != nil {
		return nil, err
	}
	return withRatings(ctx, s.Ratings, tours)
}

// TourDetail returns one visible tour with its rating.
func (s *Catalog) TourDetail(ctx context.Context, id uint64) (*model.RatedTour, error) {
	t, err := s.Tours.GetPublished(ctx, id)
	if err != nil {
		return nil, err
	}
	rated, err := withRatings(ctx, s.Ratings, []model.Tour{*t})
	if err != nil {
		return nil, err
	}
	return &rated[0], nil
}

// FeedbackTree returns top-level comments on visible tours with their
// replies nested.
func (s *Catalog) FeedbackTree(ctx context.Context, tourID *uint64) ([]*model.FeedbackNode, error) {
	rows, err := s.Feedbacks.ListVisible(ctx, tourID)
	if err != nil {
		return nil, err
	}
	return model.BuildFeedbackForest(rows), nil
}

// FeedbackInput is the body of POST /feedbacks.
type FeedbackInput struct {
	Tour     uint64  `json:"tour" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	UserName *string `json:"user_name" validate:"omitempty,max=100"`
	Comment  string  `json:"comment" validate:"required,max=5000"`
	Parent   *uint64 `json:"parent"`
}

// AddFeedback stores an anonymous comment on a visible tour.
func (s *Catalog) AddFeedback(ctx context.Context, in FeedbackInput) (*model.Feedback, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Tours.GetPublished(ctx, in.Tour); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewValidationError("tour", "Указан несуществующий тур.")
		}
		return nil, err
	}
	f := &model.Feedback{
		TourID:   in.Tour,
		Email:    optionalString(in.Email),
		UserName: optionalString(in.UserName),
		Comment:  in.Comment,
		ParentID: in.Parent,
	}
	if err := s.Feedbacks.Create(ctx, f); err != nil {
		var ref *repository.ReferenceError
		if errors.As(err, &ref) {
			return nil, model.NewValidationError("parent", "Родительский отзыв должен относиться к тому же туру.")
		}
		return nil, err
	}
	return f, nil
}

// RatingInput is the body of POST /tours/:id/ratings.
type RatingInput struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

// Rate adds a score from p to a visible tour.  Every submission is kept.
func (s *Catalog) Rate(ctx context.Context, p *authz.Principal, tourID uint64, in RatingInput) (*model.Rating, error) {
	if err := authz.Authorize(p, authz.CapRate); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Tours.GetPublished(ctx, tourID); err != nil {
		return nil, err
	}
	r := &model.Rating{TourID: tourID, UserID: p.UserID, Score: uint8(in.Score)}
	if err := s.Ratings.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Catalog) Banners(ctx context.Context) ([]model.Banner, error) {
	return s.Items.ListActiveBanners(ctx)
}

func (s *Catalog) Banner(ctx context.Context, id uint64) (*model.Banner, error) {
	return s.Items.GetBanner(ctx, id)
}

func (s *Catalog) Categories(ctx context.Context) ([]model.Category, error) {
	return s.Items.ListCategories(ctx)
}

func (s *Catalog) Regions(ctx context.Context) ([]model.RegionTour, error) {
	return s.Items.ListRegions(ctx)
}

func (s *Catalog) Region(ctx context.Context, id uint64) (*model.RegionTour, error) {
	return s.Items.GetRegion(ctx, id)
}
