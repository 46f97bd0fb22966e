package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/leave-request-service/internal/repository"
)

// DefaultLeaveDays is the balance every user is reset to.
const DefaultLeaveDays = 10

// Ledger mutates users' leave-day balances.  Every method runs inside the
// caller's transaction and looks the user up first, so a missing user
// fails with NotFound before anything is written.
type Ledger struct {
	users       *repository.UserRepo
	defaultDays int
}

// NewLedger returns a Ledger; defaultDays <= 0 falls back to DefaultLeaveDays.
func NewLedger(users *repository.UserRepo, defaultDays int) *Ledger {
	if defaultDays <= 0 {
		defaultDays = DefaultLeaveDays
	}
	return &Ledger{users: users, defaultDays: defaultDays}
}

// DefaultDays returns the balance Reset assigns.
func (l *Ledger) DefaultDays() int { return l.defaultDays }

// Debit subtracts days from the user's balance.  The balance may go negative.
func (l *Ledger) Debit(ctx context.Context, tx *sql.Tx, userID uint64, days int) error {
	if err := l.ensureUser(ctx, tx, userID); err != nil {
		return err
	}
	if err := l.users.AddLeaveDaysTx(ctx, tx, userID, -days); err != nil {
		return fmt.Errorf("debit leave days: %w", err)
	}
	return nil
}

// Credit adds days to the user's balance.
func (l *Ledger) Credit(ctx context.Context, tx *sql.Tx, userID uint64, days int) error {
	if err := l.ensureUser(ctx, tx, userID); err != nil {
		return err
	}
	if err := l.users.AddLeaveDaysTx(ctx, tx, userID, days); err != nil {
		return fmt.Errorf("credit leave days: %w", err)
	}
	return nil
}

// Reset sets the user's balance back to the default.
func (l *Ledger) Reset(ctx context.Context, tx *sql.Tx, userID uint64) error {
	if err := l.ensureUser(ctx, tx, userID); err != nil {
		return err
	}
	if err := l.users.SetLeaveDaysTx(ctx, tx, userID, l.defaultDays); err != nil {
		return fmt.Errorf("reset leave days: %w", err)
	}
	return nil
}

// ResetAll resets every user and returns how many rows were touched.
func (l *Ledger) ResetAll(ctx context.Context, tx *sql.Tx) (int64, error) {
	n, err := l.users.SetAllLeaveDaysTx(ctx, tx, l.defaultDays)
	if err != nil {
		return 0, fmt.Errorf("reset all leave days: %w", err)
	}
	return n, nil
}

func (l *Ledger) ensureUser(ctx context.Context, tx *sql.Tx, userID uint64) error {
	if _, err := l.users.GetByIDTx(ctx, tx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, "user %d not found", userID)
		}
		return fmt.Errorf("load user: %w", err)
	}
	return nil
}
