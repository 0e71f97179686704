package model

import (
	"sort"
	"time"
)

// MinScore and MaxScore bound Rating.Score.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one score a user gave a tour.  The (tour, user) pair is indexed
// but not unique, so a user may rate the same tour more than once.
type Rating struct {
	ID        uint64    // ratings.id
	TourID    uint64    // ratings.tour_id
	UserID    uint64    // ratings.user_id
	Score     uint8     // ratings.score
	CreatedAt time.Time // ratings.created_at
	UpdatedAt time.Time // ratings.updated_at
}

// AverageRating returns the arithmetic mean of scores, or nil when there
// are none.  A tour without ratings is unrated, not rated zero.
func AverageRating(scores []uint8) *float64 {
	if len(scores) == 0 {
		return nil
	}
	var sum int
	for _, s := range scores {
		sum += int(s)
	}
	avg := float64(sum) / float64(len(scores))
	return &avg
}

// RankByRating orders tours by descending average; unrated tours go last
// and ties keep their incoming order.
func RankByRating(tours []RatedTour) {
	sort.SliceStable(tours, func(i, j int) bool {
		a, b := tours[i].AverageRating, tours[j].AverageRating
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a > *b
	})
}
