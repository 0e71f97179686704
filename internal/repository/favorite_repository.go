package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tour-booking/internal/model"
)

type FavoriteRepo struct{ DB *sql.DB }

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{DB: db} }

// Add bookmarks a tour.  A second bookmark of the same tour is ErrConflict
// and an unknown tour is ErrNotFound.
func (r *FavoriteRepo) Add(ctx context.Context, userID, tourID uint64) (*model.Favorite, error) {
	res, err := r.DB.ExecContext(ctx, "INSERT INTO favorites (tour_id, user_id) VALUES (?,?)", tourID, userID)
	switch {
	case err == nil:
	case isDuplicate(err):
		return nil, ErrConflict
	case isMissingReference(err):
		return nil, ErrNotFound
	default:
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var f model.Favorite
	err = r.DB.QueryRowContext(ctx, `SELECT f.id, f.tour_id, f.user_id, f.added_at, t.title
		FROM favorites f JOIN tours t ON t.id = f.tour_id WHERE f.id = ?`, id).
		Scan(&f.ID, &f.TourID, &f.UserID, &f.AddedAt, &f.TourTitle)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Remove deletes the bookmark of (userID, tourID).
func (r *FavoriteRepo) Remove(ctx context.Context, userID, tourID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM favorites WHERE tour_id = ? AND user_id = ?", tourID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's bookmarks, newest first.
func (r *FavoriteRepo) List(ctx context.Context, userID uint64) ([]model.Favorite, error) {
	out := []model.Favorite{}
	err := eachRow(ctx, r.DB, `SELECT f.id, f.tour_id, f.user_id, f.added_at, t.title
		FROM favorites f JOIN tours t ON t.id = f.tour_id
		WHERE f.user_id = ? ORDER BY f.added_at DESC, f.id DESC`, []any{userID}, func(s rowScanner) error {
		var f model.Favorite
		if err := s.Scan(&f.ID, &f.TourID, &f.UserID, &f.AddedAt, &f.TourTitle); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}
