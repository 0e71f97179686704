package service

import (
	"context"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Favorites manages the caller's bookmarked tours.
type Favorites struct {
	Favorites FavoriteStore
	Tours     TourStore
}

func (s *Favorites) List(ctx context.Context, p *authz.Principal) ([]model.Favorite, error) {
	if err := authz.Authorize(p, authz.CapFavorite); err != nil {
		return nil, err
	}
	return s.Favorites.List(ctx, p.UserID)
}

// Add bookmarks a visible tour; bookmarking it twice is a conflict.
func (s *Favorites) Add(ctx context.Context, p *authz.Principal, tourID uint64) (*model.Favorite, error) {
	if err := authz.Authorize(p, authz.CapFavorite); err != nil {
		return nil, err
	}
	if _, err := s.Tours.GetPublished(ctx, tourID); err != nil {
		return nil, err
	}
	return s.Favorites.Add(ctx, p.UserID, tourID)
}

func (s *Favorites) Remove(ctx context.Context, p *authz.Principal, tourID uint64) error {
	if err := authz.Authorize(p, authz.CapFavorite); err != nil {
		return err
	}
	return s.Favorites.Remove(ctx, p.UserID, tourID)
}
