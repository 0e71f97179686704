package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, username, phone, password_hash, avatar, status,
	is_admin, is_superuser, is_blocked, balance_cents, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u      model.User
		avatar sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Phone, &u.PasswordHash, &avatar, &u.Status,
		&u.IsAdmin, &u.IsSuperuser, &u.IsBlocked, &u.BalanceCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return &u, nil
}

// Create inserts u (PasswordHash must already be set) and fills its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if !u.Status.Valid() {
		u.Status = model.StatusPlain
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, phone, password_hash, status, is_admin, is_superuser) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.Username, u.Phone, u.PasswordHash, u.Status, u.IsAdmin, u.IsSuperuser)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// List returns every account ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateProfile applies the non-nil fields of p.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.ProfilePatch) error {
	sets := []string{}
	args := []any{}
	if p.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *p.Username)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, normalizeEmail(*p.Email))
	}
	if p.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *p.Phone)
	}
	if p.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *p.Avatar)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so only a
	// missing row is treated as not found.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}

// ToggleBlocked flips is_blocked and returns the new value.
func (r *UserRepo) ToggleBlocked(ctx context.Context, id uint64) (bool, error) {
	return toggleFlag(ctx, r.DB, "users", "is_blocked", id)
}

// Delete removes the account; bookings, ratings, favorites and tokens go
// with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Withdraw subtracts cents from the balance in one conditional statement
// and returns the remaining balance.  The balance is left unchanged when it
// does not cover the amount.
func (r *UserRepo) Withdraw(ctx context.Context, id uint64, cents int64) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance_cents = balance_cents - ? WHERE id = ? AND balance_cents >= ?",
		cents, id, cents)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrInsufficientFunds
	}
	var balance int64
	if err := tx.QueryRowContext(ctx, "SELECT balance_cents FROM users WHERE id = ?", id).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, tx.Commit()
}

// Count returns the number of accounts.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.DB, "users")
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// toggleFlag flips a boolean column inside a transaction and reads it back.
func toggleFlag(ctx context.Context, db *sql.DB, table, column string, id uint64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "UPDATE "+table+" SET "+column+" = NOT "+column+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var v bool
	if err := tx.QueryRowContext(ctx, "SELECT "+column+" FROM "+table+" WHERE id = ?", id).Scan(&v); err != nil {
		return false, err
	}
	return v, tx.Commit()
}

func countRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
