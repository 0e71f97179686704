package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tour-booking/internal/model"
)

type FeedbackRepo struct{ DB *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{DB: db} }

const feedbackColumns = "id, tour_id, email, user_name, comment, parent_id, created_at"

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var f model.Feedback
	if err := row.Scan(&f.ID, &f.TourID, &f.Email, &f.UserName, &f.Comment, &f.ParentID, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create stores a comment.  A reply must point at an existing comment of
// the same tour, otherwise a *ReferenceError for "parent" is returned.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if f.ParentID != nil {
		var parentTour uint64
		err := tx.QueryRowContext(ctx, "SELECT tour_id FROM feedbacks WHERE id = ? FOR SHARE", *f.ParentID).Scan(&parentTour)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && parentTour != f.TourID) {
			return &ReferenceError{Field: "parent"}
		}
		if err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO feedbacks (tour_id, email, user_name, comment, parent_id) VALUES (?,?,?,?,?)",
		f.TourID, f.Email, f.UserName, f.Comment, f.ParentID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanFeedback(tx.QueryRowContext(ctx, "SELECT "+feedbackColumns+" FROM feedbacks WHERE id = ?", id))
	if err != nil {
		return err
	}
	*f = *stored
	return tx.Commit()
}

// ListVisible returns comments in insertion order, optionally for a single
// tour.  Comments on unpublished or blocked tours are left out.
func (r *FeedbackRepo) ListVisible(ctx context.Context, tourID *uint64) ([]model.Feedback, error) {
	q := `SELECT f.id, f.tour_id, f.email, f.user_name, f.comment, f.parent_id, f.created_at
		FROM feedbacks f JOIN tours t ON t.id = f.tour_id
		WHERE ` + publicVisible
	var args []any
	if tourID != nil {
		q += " AND f.tour_id = ?"
		args = append(args, *tourID)
	}
	out := []model.Feedback{}
	err := eachRow(ctx, r.DB, q+" ORDER BY f.id", args, func(s rowScanner) error {
		f, err := scanFeedback(s)
		if err != nil {
			return err
		}
		out = append(out, *f)
		return nil
	})
	return out, err
}

// DeleteLeaf removes a comment without replies.  Comments with replies are
// kept and ErrHasChildren is returned.
func (r *FeedbackRepo) DeleteLeaf(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM feedbacks WHERE id = ? FOR UPDATE", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var children int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedbacks WHERE parent_id = ?", id).Scan(&children); err != nil {
		return err
	}
	if children > 0 {
		return ErrHasChildren
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM feedbacks WHERE id = ?", id); err != nil {
		if isRowReferenced(err) {
			return ErrHasChildren
		}
		return err
	}
	return tx.Commit()
}
