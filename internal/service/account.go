package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/repository"
)

// CredentialHasher hashes and verifies passwords.
type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// AccountService registers and authenticates users and runs the
// administrative balance resets.
type AccountService struct {
	db     *sql.DB
	users  *repository.UserRepo
	ledger *Ledger
	hasher CredentialHasher
	locker Locker
	now    func() time.Time
}

// NewAccountService wires the account operations.  locker must be the one
// shared with LeaveService so resets and leave changes exclude each other;
// nil gives a private in-process lock.
func NewAccountService(db *sql.DB, users *repository.UserRepo, ledger *Ledger, hasher CredentialHasher, locker Locker) *AccountService {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &AccountService{
		db:     db,
		users:  users,
		ledger: ledger,
		hasher: hasher,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a regular user with the default balance.
func (s *AccountService) Register(ctx context.Context, username, password, fullName string) (model.User, error) {
	return s.create(ctx, username, password, fullName, false)
}

func (s *AccountService) create(ctx context.Context, username, password, fullName string, admin bool) (model.User, error) {
	username = repository.NormalizeUsername(username)
	fullName = strings.TrimSpace(fullName)
	switch {
	case username == "":
		return model.User{}, newError(KindValidation, "username is required")
	case len(password) < 6:
		return model.User{}, newError(KindValidation, "password must be at least 6 characters")
	case len(password) > 72:
		return model.User{}, newError(KindValidation, "password must be at most 72 bytes")
	case fullName == "":
		return model.User{}, newError(KindValidation, "full_name is required")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Username:           username,
		PasswordHash:       hash,
		FullName:           fullName,
		RemainingLeaveDays: s.ledger.DefaultDays(),
		IsAdmin:            admin,
		CreatedAt:          s.now(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return model.User{}, newError(KindConflict, "username already taken")
		}
		return model.User{}, err
	}
	return u, nil
}

// Authenticate returns the user when the password matches.  Unknown users
// and wrong passwords fail the same way.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, newError(KindInvalidCredentials, "invalid username or password")
		}
		return model.User{}, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return model.User{}, newError(KindInvalidCredentials, "invalid username or password")
	}
	return u, nil
}

// Profile returns the user with the given id.
func (s *AccountService) Profile(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, "user %d not found", id)
	}
	return u, nil
}

// EnsureAdmin creates the administrator account unless the username is
// already taken.  It reports whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password, fullName string) (bool, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, username, password, fullName, true); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	zap.L().Info("admin account created", zap.String("username", repository.NormalizeUsername(username)))
	return true, nil
}

// ResetLeaveDays sets one user's balance back to the default.
func (s *AccountService) ResetLeaveDays(ctx context.Context, userID uint64) (model.User, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("lock user %d: %w", userID, err)
	}
	defer unlock()

	var u model.User
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.ledger.Reset(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		u, err = s.users.GetByIDTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ResetAllLeaveDays resets every balance and returns how many users were reset.
func (s *AccountService) ResetAllLeaveDays(ctx context.Context) (int64, error) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	unlock, err := lockAll(ctx, s.locker, ids)
	if err != nil {
		return 0, fmt.Errorf("lock users: %w", err)
	}
	defer unlock()

	var n int64
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		n, err = s.ledger.ResetAll(ctx, tx)
		return err
	})
	return n, err
}
