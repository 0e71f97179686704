package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tour-booking/internal/model"
)

// BookingRepo stores bookings.  Status changes and the matching balance
// credit happen in one transaction.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.tour_id, b.user_id, b.date_tour_id, b.participants, b.total_cents,
	b.status, b.created_at, b.updated_at, t.title`

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.TourID, &b.UserID, &b.DateTourID, &b.Participants, &b.TotalCents,
		&b.Status, &b.CreatedAt, &b.UpdatedAt, &b.TourTitle)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a pending booking and reads it back.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, date_tour_id, participants, total_cents, status) VALUES (?,?,?,?,?,?)",
		b.TourID, b.UserID, b.DateTourID, b.Participants, b.TotalCents, model.BookingPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// GetByID fetches a booking with its tour title.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func getBooking(ctx context.Context, q querier, id uint64) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings b JOIN tours t ON t.id = b.tour_id WHERE b.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListByUser returns the caller's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, "b.user_id = ?", userID)
}

// ListForAuthor returns bookings on tours authored by authorID.  A nil
// authorID lists every booking.
func (r *BookingRepo) ListForAuthor(ctx context.Context, authorID *uint64) ([]model.Booking, error) {
	if authorID == nil {
		return r.list(ctx, "1 = 1")
	}
	return r.list(ctx, "t.author_id = ?", *authorID)
}

func (r *BookingRepo) list(ctx context.Context, cond string, args ...any) ([]model.Booking, error) {
	out := []model.Booking{}
	err := eachRow(ctx, r.db,
		"SELECT "+bookingColumns+" FROM bookings b JOIN tours t ON t.id = b.tour_id WHERE "+cond+" ORDER BY b.created_at DESC, b.id DESC",
		args, func(s rowScanner) error {
			b, err := scanBooking(s)
			if err != nil {
				return err
			}
			out = append(out, *b)
			return nil
		})
	return out, err
}

// DeleteOwnedReturning removes the booking only when userID owns it and
// returns the row as it was just before the delete.  Someone else's booking
// reports ErrNotFound, same as a missing id.
func (r *BookingRepo) DeleteOwnedReturning(ctx context.Context, id, userID uint64) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings b JOIN tours t ON t.id = b.tour_id WHERE b.id = ? AND b.user_id = ? FOR UPDATE",
		id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return nil, err
	}
	return b, tx.Commit()
}

// SetStatus moves a booking from pending to confirmed or rejected.  With a
// non-nil scopeAuthor the booking must belong to a tour that user authored.
// Confirming credits the booking total to the tour author's balance in the
// same transaction.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, scopeAuthor *uint64, to model.BookingStatus) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT b.status, b.total_cents, t.author_id
		FROM bookings b JOIN tours t ON t.id = b.tour_id
		WHERE b.id = ?`
	args := []any{id}
	if scopeAuthor != nil {
		q += " AND t.author_id = ?"
		args = append(args, *scopeAuthor)
	}
	var (
		current  model.BookingStatus
		total    int64
		authorID sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, q+" FOR UPDATE", args...).Scan(&current, &total, &authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !current.CanTransition(to) {
		return nil, ErrInvalidTransition
	}
	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", to, id); err != nil {
		return nil, err
	}
	if to == model.BookingConfirmed && authorID.Valid {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET balance_cents = balance_cents + ? WHERE id = ?", total, authorID.Int64); err != nil {
			return nil, err
		}
	}
	b, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return b, tx.Commit()
}

// Count returns the number of bookings.
func (r *BookingRepo) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "bookings")
}
