package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/tour-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var tourCols = []string{"id", "author", "author_id", "title", "description", "route", "duration_days",
	"price_cents", "discount_price_cents", "discount_start", "discount_end",
	"participant_price_cents", "max_participants", "is_published", "is_admin", "is_blocked",
	"created_at", "updated_at"}

func addTourRow(rows *sqlmock.Rows, id uint64, title string) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Ivan", int64(7), title, "desc", "route", 3,
		int64(10000), nil, nil, nil, int64(2500), 10, true, false, false, now, now)
}

func expectNoRelations(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM tour_categories").WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "slug"}))
	mock.ExpectQuery("FROM tour_regions").WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "image", "slug"}))
	mock.ExpectQuery("FROM tour_dates").WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "start_date", "end_date", "tour_type", "season"}))
	mock.ExpectQuery("FROM tour_image_links").WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "image", "created_at"}))
}

var bookingCols = []string{"id", "tour_id", "user_id", "date_tour_id", "participants", "total_cents",
	"status", "created_at", "updated_at", "title"}

func TestBookingDeleteByNonOwnerIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ? AND b.user_id = ? FOR UPDATE")).
		WithArgs(uint64(11), uint64(99)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectRollback()

	b, err := repo.DeleteOwnedReturning(context.Background(), 11, 99)
	if !errors.Is(err, ErrNotFound) || b != nil {
		t.Fatalf("expected ErrNotFound, got %v %+v", err, b)
	}
	expectMet(t, mock)
}

func TestBookingDeleteOwnedReturnsDeletedRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ? AND b.user_id = ? FOR UPDATE")).
		WithArgs(uint64(11), uint64(5)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(uint64(11), uint64(3), uint64(5), uint64(8), 2, int64(14000), "pending", now, now, "Altai"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(11), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.DeleteOwnedReturning(context.Background(), 11, 5)
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 11 || b.TourTitle != "Altai" || b.TotalCents != 14000 {
		t.Fatalf("unexpected booking %+v", b)
	}
	expectMet(t, mock)
}

func TestWithdrawInsufficientFundsKeepsBalance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents - ? WHERE id = ? AND balance_cents >= ?")).
		WithArgs(int64(50000), uint64(3), int64(50000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Withdraw(context.Background(), 3, 50000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	expectMet(t, mock)
}

func TestWithdrawReturnsRemainingBalance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET balance_cents").
		WithArgs(int64(10000), uint64(3), int64(10000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT balance_cents FROM users").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(int64(20000)))
	mock.ExpectCommit()

	left, err := repo.Withdraw(context.Background(), 3, 10000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if left != 20000 {
		t.Fatalf("expected 20000 left, got %d", left)
	}
	expectMet(t, mock)
}

func TestFeedbackDeleteWithRepliesIsRejected(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeedbackRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM feedbacks WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM feedbacks WHERE parent_id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	if err := repo.DeleteLeaf(context.Background(), 5); !errors.Is(err, ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}
	expectMet(t, mock)
}

func TestFeedbackListJoinsVisibleTours(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeedbackRepo(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "tour_id", "email", "user_name", "comment", "parent_id", "created_at"}

	mock.ExpectQuery(`JOIN tours t ON t\.id = f\.tour_id\s+WHERE t\.is_published = 1 AND t\.is_blocked = 0 ORDER BY f\.id`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(uint64(1), uint64(2), nil, nil, "hi", nil, now))
	mock.ExpectQuery(`WHERE t\.is_published = 1 AND t\.is_blocked = 0 AND f\.tour_id = \? ORDER BY f\.id`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(cols))

	all, err := repo.ListVisible(context.Background(), nil)
	if err != nil || len(all) != 1 || all[0].Comment != "hi" {
		t.Fatalf("list: %v %+v", err, all)
	}
	tourID := uint64(9)
	one, err := repo.ListVisible(context.Background(), &tourID)
	if err != nil || len(one) != 0 {
		t.Fatalf("list by tour: %v %+v", err, one)
	}
	expectMet(t, mock)
}

func TestFeedbackReplyToOtherTourIsRejected(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeedbackRepo(db)
	parent := uint64(4)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT tour_id FROM feedbacks WHERE id = ?")).
		WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id"}).AddRow(uint64(2)))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Feedback{TourID: 1, Comment: "hi", ParentID: &parent})
	var ref *ReferenceError
	if !errors.As(err, &ref) || ref.Field != "parent" {
		t.Fatalf("expected parent reference error, got %v", err)
	}
	expectMet(t, mock)
}

func TestSeasonListingUsesExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTourRepo(db)

	rows := addTourRow(sqlmock.NewRows(tourCols), 1, "Alps")
	mock.ExpectQuery(`is_published = 1 AND t.is_blocked = 0 AND EXISTS \(`).
		WithArgs("summer").
		WillReturnRows(rows)
	expectNoRelations(mock)

	tours, err := repo.ListPublishedBySeason(context.Background(), model.SeasonSummer)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 1 || tours[0].Title != "Alps" {
		t.Fatalf("unexpected tours: %+v", tours)
	}
	if tours[0].AuthorID == nil || *tours[0].AuthorID != 7 {
		t.Fatalf("author id not scanned: %v", tours[0].AuthorID)
	}
	if tours[0].Dates == nil || tours[0].Categories == nil {
		t.Fatal("relations must be empty slices, not nil")
	}
	expectMet(t, mock)
}

func TestTourRelationsAreAttached(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTourRepo(db)

	rows := addTourRow(addTourRow(sqlmock.NewRows(tourCols), 1, "Alps"), 2, "Baikal")
	mock.ExpectQuery("FROM tours t WHERE").WillReturnRows(rows)
	mock.ExpectQuery("FROM tour_categories").WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "slug"}).
			AddRow(uint64(2), uint64(8), "Горы", "", "gory"))
	mock.ExpectQuery("FROM tour_regions").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "image", "slug"}))
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM tour_dates").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "start_date", "end_date", "tour_type", "season"}).
			AddRow(uint64(1), uint64(30), start, start.AddDate(0, 0, 5), "group", "summer"))
	mock.ExpectQuery("FROM tour_image_links").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "image", "created_at"}))

	tours, err := repo.ListPublished(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours[0].Dates) != 1 || tours[0].Dates[0].Season != model.SeasonSummer {
		t.Fatalf("dates not attached: %+v", tours[0].Dates)
	}
	if len(tours[1].Categories) != 1 || *tours[1].Categories[0].Slug != "gory" {
		t.Fatalf("categories not attached: %+v", tours[1].Categories)
	}
	expectMet(t, mock)
}

func TestTopRatedRanksAndLimitsInSQL(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTourRepo(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	cols := append(append([]string{}, tourCols...), "avg_score")
	rows := sqlmock.NewRows(cols).
		AddRow(uint64(5), "Ivan", int64(7), "best", "desc", "route", 3,
			int64(10000), nil, nil, nil, int64(2500), 10, true, false, false, now, now, 4.5).
		AddRow(uint64(2), "Ivan", int64(7), "unrated", "desc", "route", 3,
			int64(10000), nil, nil, nil, int64(2500), 10, true, false, false, now, now, nil)
	mock.ExpectQuery(`ORDER BY r\.avg_score IS NULL, r\.avg_score DESC, t\.id\s+LIMIT \?`).
		WithArgs(4).
		WillReturnRows(rows)
	mock.ExpectQuery("FROM tour_categories").WithArgs(uint64(5), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "slug"}))
	mock.ExpectQuery("FROM tour_regions").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "title", "description", "image", "slug"}))
	mock.ExpectQuery("FROM tour_dates").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "start_date", "end_date", "tour_type", "season"}))
	mock.ExpectQuery("FROM tour_image_links").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "id", "image", "created_at"}))

	got, err := repo.TopRated(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "best" || got[1].Title != "unrated" {
		t.Fatalf("unexpected tours %+v", got)
	}
	if got[0].AverageRating == nil || *got[0].AverageRating != 4.5 || got[1].AverageRating != nil {
		t.Fatalf("averages: %v %v", got[0].AverageRating, got[1].AverageRating)
	}
	expectMet(t, mock)
}

func TestScoresByTourSplitsLongIDLists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRatingRepo(db)

	ids := make([]uint64, maxInIDs+1)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	mock.ExpectQuery("FROM ratings WHERE tour_id IN").
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "score"}).AddRow(uint64(1), 5))
	mock.ExpectQuery("FROM ratings WHERE tour_id IN").WithArgs(uint64(maxInIDs + 1)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "score"}).AddRow(uint64(maxInIDs+1), 3))

	got, err := repo.ScoresByTour(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(got[1]) != 1 || len(got[maxInIDs+1]) != 1 || got[maxInIDs+1][0] != 3 {
		t.Fatalf("scores %v", got)
	}
	expectMet(t, mock)
}

func TestUpdateOwnedByOtherAuthorIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTourRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = ? AND t.author_id = ? FOR UPDATE")).
		WithArgs(uint64(1), uint64(42)).
		WillReturnRows(sqlmock.NewRows(tourCols))
	mock.ExpectRollback()

	title := "new"
	_, err := repo.UpdateOwned(context.Background(), 1, 42, model.TourPatch{Title: &title}, model.TourRelations{}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateTourWithUnknownCategoryRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTourRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tours").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE id IN (?,?)")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	tour := &model.Tour{Title: "Alps", MaxParticipants: 1}
	err := repo.Create(context.Background(), tour, model.TourRelations{CategoryIDs: []uint64{1, 2, 2}}, nil)
	var ref *ReferenceError
	if !errors.As(err, &ref) || ref.Field != "category_ids" {
		t.Fatalf("expected category_ids reference error, got %v", err)
	}
	expectMet(t, mock)
}

func TestConfirmBookingCreditsAuthor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	author := uint64(7)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND t.author_id = ? FOR UPDATE")).
		WithArgs(uint64(3), author).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_cents", "author_id"}).
			AddRow("pending", int64(12500), int64(author)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ?")).
		WithArgs(model.BookingConfirmed, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance_cents = balance_cents + ? WHERE id = ?")).
		WithArgs(int64(12500), int64(author)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings b JOIN tours t").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(uint64(3), uint64(1), uint64(2), uint64(30), 2, int64(12500), "confirmed", now, now, "Alps"))
	mock.ExpectCommit()

	b, err := repo.SetStatus(context.Background(), 3, &author, model.BookingConfirmed)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if b.Status != model.BookingConfirmed || b.TourTitle != "Alps" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	expectMet(t, mock)
}

func TestDecidedBookingCannotChange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings b JOIN tours t").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_cents", "author_id"}).
			AddRow("rejected", int64(100), nil))
	mock.ExpectRollback()

	_, err := repo.SetStatus(context.Background(), 3, nil, model.BookingConfirmed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	expectMet(t, mock)
}

func TestConsumeRefreshRevokesToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).AddRow(uint64(5), time.Now().UTC().Add(time.Hour)))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uid, err := repo.ConsumeRefresh(context.Background(), "abc")
	if err != nil || uid != 5 {
		t.Fatalf("consume: uid=%d err=%v", uid, err)
	}
	expectMet(t, mock)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	if got := likePattern(`Sale 50%_Off`); got != `%sale 50\%\_off%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}
