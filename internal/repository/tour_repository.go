package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TourRepo encapsulates all queries on tours and their link tables.
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

const tourColumns = `t.id, t.author, t.author_id, t.title, t.description, t.route, t.duration_days,
	t.price_cents, t.discount_price_cents, t.discount_start, t.discount_end,
	t.participant_price_cents, t.max_participants, t.is_published, t.is_admin, t.is_blocked,
	t.created_at, t.updated_at`

// publicVisible restricts a query to tours anonymous users may see.
const publicVisible = "t.is_published = 1 AND t.is_blocked = 0"

// scanTour reads tourColumns followed by any extra columns into extra.
func scanTour(row rowScanner, extra ...any) (*model.Tour, error) {
	var (
		t        model.Tour
		authorID sql.NullInt64
		discount sql.NullInt64
		dStart   sql.NullTime
		dEnd     sql.NullTime
	)
	dest := append([]any{&t.ID, &t.Author, &authorID, &t.Title, &t.Description, &t.Route, &t.DurationDays,
		&t.PriceCents, &discount, &dStart, &dEnd,
		&t.ParticipantPriceCents, &t.MaxParticipants, &t.IsPublished, &t.IsAdmin, &t.IsBlocked,
		&t.CreatedAt, &t.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		id := uint64(authorID.Int64)
		t.AuthorID = &id
	}
	if discount.Valid {
		t.DiscountPriceCents = &discount.Int64
	}
	if dStart.Valid {
		t.DiscountStart = &dStart.Time
	}
	if dEnd.Valid {
		t.DiscountEnd = &dEnd.Time
	}
	return &t, nil
}

// listTours runs a tour SELECT with the given condition ordered by id
// (insertion order) and loads relations for the result.
func (r *TourRepo) listTours(ctx context.Context, cond string, args ...any) ([]model.Tour, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+tourColumns+" FROM tours t WHERE "+cond+" ORDER BY t.id", args...)
	if err != nil {
		return nil, err
	}
	var out []model.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TourRepo) getOne(ctx context.Context, cond string, args ...any) (*model.Tour, error) {
	tours, err := r.listTours(ctx, cond, args...)
	if err != nil {
		return nil, err
	}
	if len(tours) == 0 {
		return nil, ErrNotFound
	}
	return &tours[0], nil
}

// GetByID fetches a tour regardless of publication state.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	return r.getOne(ctx, "t.id = ?", id)
}

// GetPublished fetches a tour only if it is published and not blocked.
func (r *TourRepo) GetPublished(ctx context.Context, id uint64) (*model.Tour, error) {
	return r.getOne(ctx, "t.id = ? AND "+publicVisible, id)
}

// ListPublished returns every publicly visible tour in insertion order.
func (r *TourRepo) ListPublished(ctx context.Context) ([]model.Tour, error) {
	return r.listTours(ctx, publicVisible)
}

// TopRated returns up to limit visible tours ordered by average score,
// unrated tours last and ties by id.  Relations are loaded for the
// returned rows only.
func (r *TourRepo) TopRated(ctx context.Context, limit int) ([]model.RatedTour, error) {
	var (
		tours []model.Tour
		avgs  []*float64
	)
	err := eachRow(ctx, r.db, `SELECT `+tourColumns+`, r.avg_score
		FROM tours t
		LEFT JOIN (SELECT tour_id, AVG(score) AS avg_score FROM ratings GROUP BY tour_id) r ON r.tour_id = t.id
		WHERE `+publicVisible+`
		ORDER BY r.avg_score IS NULL, r.avg_score DESC, t.id
		LIMIT ?`, []any{limit}, func(s rowScanner) error {
		var avg sql.NullFloat64
		t, err := scanTour(s, &avg)
		if err != nil {
			return err
		}
		tours = append(tours, *t)
		if avg.Valid {
			avgs = append(avgs, &avg.Float64)
		} else {
			avgs = append(avgs, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, r.db, tours); err != nil {
		return nil, err
	}
	out := make([]model.RatedTour, len(tours))
	for i := range tours {
		out[i] = model.RatedTour{Tour: tours[i], AverageRating: avgs[i]}
	}
	return out, nil
}

// ListPublishedBySeason returns visible tours having at least one DateTour
// in season.  EXISTS keeps each tour to a single row however many of its
// dates match.
func (r *TourRepo) ListPublishedBySeason(ctx context.Context, season model.Season) ([]model.Tour, error) {
	return r.listTours(ctx, publicVisible+` AND EXISTS (
		SELECT 1 FROM tour_dates td
		JOIN date_tours d ON d.id = td.date_tour_id
		WHERE td.tour_id = t.id AND d.season = ?)`, string(season))
}

// SearchPublished matches term as a case-insensitive substring of the
// title, description or route.
func (r *TourRepo) SearchPublished(ctx context.Context, term string) ([]model.Tour, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.ListPublished(ctx)
	}
	p := likePattern(term)
	return r.listTours(ctx, publicVisible+` AND (
		LOWER(t.title) LIKE ? OR LOWER(t.description) LIKE ? OR LOWER(t.route) LIKE ?)`, p, p, p)
}

// ListByAuthor returns the tours owned by authorID, published or not.
func (r *TourRepo) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Tour, error) {
	return r.listTours(ctx, "t.author_id = ?", authorID)
}

// Create inserts t, creates newDates and links every relation inside one
// transaction.  Unknown relation ids abort the whole write with a
// *ReferenceError.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour, rel model.TourRelations, newDates []model.DateTour) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO tours
		(author, author_id, title, description, route, duration_days, price_cents,
		 discount_price_cents, discount_start, discount_end, participant_price_cents,
		 max_participants, is_published, is_admin)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Author, t.AuthorID, t.Title, t.Description, t.Route, t.DurationDays, t.PriceCents,
		t.DiscountPriceCents, t.DiscountStart, t.DiscountEnd, t.ParticipantPriceCents,
		t.MaxParticipants, t.IsPublished, t.IsAdmin)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	created, err := insertDates(ctx, tx, newDates)
	if err != nil {
		return err
	}
	dateIDs := append(append([]uint64{}, rel.DateIDs...), created...)
	for _, l := range []struct {
		spec linkSpec
		ids  []uint64
	}{
		{categoryLinks, rel.CategoryIDs},
		{regionLinks, rel.RegionIDs},
		{dateLinks, dateIDs},
		{imageLinks, rel.ImageIDs},
	} {
		if err := addLinks(ctx, tx, l.spec, t.ID, l.ids); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateOwned applies patch to the tour identified by (id, authorID).  The
// row is resolved and locked with both keys in one statement; a tour owned
// by someone else is indistinguishable from a missing one.  Non-nil
// relation slices replace the current links; newDates are created and
// linked in addition.
func (r *TourRepo) UpdateOwned(ctx context.Context, id, authorID uint64, patch model.TourPatch, rel model.TourRelations, newDates []model.DateTour) (*model.Tour, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTour(tx.QueryRowContext(ctx,
		"SELECT "+tourColumns+" FROM tours t WHERE t.id = ? AND t.author_id = ? FOR UPDATE", id, authorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	patch.Apply(t)
	if err := t.ValidatePricing(); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tours SET
		title = ?, description = ?, route = ?, duration_days = ?, price_cents = ?,
		discount_price_cents = ?, discount_start = ?, discount_end = ?,
		participant_price_cents = ?, max_participants = ?, is_published = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Route, t.DurationDays, t.PriceCents,
		t.DiscountPriceCents, t.DiscountStart, t.DiscountEnd,
		t.ParticipantPriceCents, t.MaxParticipants, t.IsPublished, t.ID); err != nil {
		return nil, err
	}

	created, err := insertDates(ctx, tx, newDates)
	if err != nil {
		return nil, err
	}
	if rel.DateIDs != nil {
		if err := replaceLinks(ctx, tx, dateLinks, t.ID, append(append([]uint64{}, rel.DateIDs...), created...)); err != nil {
			return nil, err
		}
	} else if err := addLinks(ctx, tx, dateLinks, t.ID, created); err != nil {
		return nil, err
	}
	for _, l := range []struct {
		spec linkSpec
		ids  []uint64
	}{
		{categoryLinks, rel.CategoryIDs},
		{regionLinks, rel.RegionIDs},
		{imageLinks, rel.ImageIDs},
	} {
		if l.ids == nil {
			continue
		}
		if err := replaceLinks(ctx, tx, l.spec, t.ID, l.ids); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, t.ID)
}

// ToggleBlocked flips the moderation flag and returns the new value.
func (r *TourRepo) ToggleBlocked(ctx context.Context, id uint64) (bool, error) {
	return toggleFlag(ctx, r.db, "tours", "is_blocked", id)
}

// Delete removes a tour.  Feedback rows are removed newest first so that
// replies go before the comments they answer; the self reference is
// RESTRICT and would otherwise reject the cascade.  Bookings, ratings,
// favorites and links cascade.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM feedbacks WHERE tour_id = ? ORDER BY id DESC", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM tours WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Count returns the number of tours.
func (r *TourRepo) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "tours")
}

func insertDates(ctx context.Context, q querier, dates []model.DateTour) ([]uint64, error) {
	ids := make([]uint64, 0, len(dates))
	for i := range dates {
		d := &dates[i]
		res, err := q.ExecContext(ctx,
			"INSERT INTO date_tours (start_date, end_date, tour_type, season) VALUES (?,?,?,?)",
			d.StartDate.Format(model.DateLayout), d.EndDate.Format(model.DateLayout), string(d.TourType), string(d.Season))
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		d.ID = uint64(id)
		ids = append(ids, d.ID)
	}
	return ids, nil
}
