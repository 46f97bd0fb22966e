package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/leave-request-service/internal/database"
	"github.com/iliyamo/leave-request-service/internal/model"
)

const userColumns = "id, username, password_hash, full_name, remaining_leave_days, is_admin, created_at"

// UserRepo persists accounts and their leave-day balance.
type UserRepo struct {
	DB *sql.DB
	// lockRows appends FOR UPDATE to in-transaction reads.  SQLite has no
	// row locks; its single connection already serializes writers.
	lockRows bool
}

func NewUserRepo(db *sql.DB, driver string) *UserRepo {
	return &UserRepo{DB: db, lockRows: driver == database.DriverMySQL}
}

// NormalizeUsername trims and lower-cases a login name.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Create inserts u and fills in its generated ID.  PasswordHash must
// already be hashed.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = NormalizeUsername(u.Username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, full_name, remaining_leave_days, is_admin, created_at) VALUES (?,?,?,?,?,?)",
		u.Username, u.PasswordHash, u.FullName, u.RemainingLeaveDays, u.IsAdmin, toMillis(u.CreatedAt))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", NormalizeUsername(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByIDTx fetches a user inside tx and, on MySQL, locks the row until
// the transaction ends.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE id=?"
	if r.lockRows {
		q += " FOR UPDATE"
	}
	return scanUser(tx.QueryRowContext(ctx, q, id))
}

// AddLeaveDaysTx adds delta (possibly negative) to the user's balance.
// No floor is applied.
func (r *UserRepo) AddLeaveDaysTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET remaining_leave_days = remaining_leave_days + ? WHERE id=?", delta, id)
	if err != nil {
		return fmt.Errorf("adjust leave days: %w", err)
	}
	return nil
}

// SetLeaveDaysTx overwrites the user's balance.
func (r *UserRepo) SetLeaveDaysTx(ctx context.Context, tx *sql.Tx, id uint64, days int) error {
	if _, err := tx.ExecContext(ctx, "UPDATE users SET remaining_leave_days=? WHERE id=?", days, id); err != nil {
		return fmt.Errorf("set leave days: %w", err)
	}
	return nil
}

// SetAllLeaveDaysTx overwrites every user's balance and returns the
// number of users touched.
func (r *UserRepo) SetAllLeaveDaysTx(ctx context.Context, tx *sql.Tx, days int) (int64, error) {
	var n int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE users SET remaining_leave_days=?", days); err != nil {
		return 0, fmt.Errorf("reset leave days: %w", err)
	}
	return n, nil
}

// ListIDs returns every user id in ascending order.
func (r *UserRepo) ListIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.RemainingLeaveDays, &u.IsAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}
