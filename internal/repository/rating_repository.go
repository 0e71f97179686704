package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tour-booking/internal/model"
)

type RatingRepo struct{ DB *sql.DB }

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{DB: db} }

// Create stores one more score for the tour.  Repeated submissions by the
// same user add rows; every row counts towards the average.
func (r *RatingRepo) Create(ctx context.Context, rt *model.Rating) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO ratings (tour_id, user_id, score) VALUES (?,?,?)",
		rt.TourID, rt.UserID, rt.Score)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// ScoresByTour returns all scores of the given tours keyed by tour id.
// Tours without ratings are absent from the map.
func (r *RatingRepo) ScoresByTour(ctx context.Context, tourIDs []uint64) (map[uint64][]uint8, error) {
	out := map[uint64][]uint8{}
	tourIDs = uniqueIDs(tourIDs)
	if len(tourIDs) == 0 {
		return out, nil
	}
	for _, chunk := range chunkIDs(tourIDs, maxInIDs) {
		err := eachRow(ctx, r.DB,
			"SELECT tour_id, score FROM ratings WHERE tour_id IN ("+placeholders(len(chunk))+") ORDER BY id",
			idArgs(chunk), func(s rowScanner) error {
				var (
					tourID uint64
					score  uint8
				)
				if err := s.Scan(&tourID, &score); err != nil {
					return err
				}
				out[tourID] = append(out[tourID], score)
				return nil
			})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
