package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-request-service/internal/model"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, "  Pat ", "secret1", "Pat Doe")
	require.NoError(t, err)
	assert.Equal(t, "pat", u.Username)
	assert.Equal(t, DefaultLeaveDays, u.RemainingLeaveDays)
	assert.False(t, u.IsAdmin)
	assert.Equal(t, model.RoleUser, u.Role())
	assert.NotEqual(t, "secret1", u.PasswordHash)

	got, err := f.accounts.Authenticate(ctx, "PAT", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.accounts.Authenticate(ctx, "pat", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Authenticate(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "", "secret1", "X")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.accounts.Register(ctx, "x", "123", "X")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.accounts.Register(ctx, "x", "secret1", " ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.accounts.Register(ctx, "x", strings.Repeat("p", 73), "X")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.accounts.Register(ctx, "quinn", "secret1", "Quinn")
	require.NoError(t, err)
	_, err = f.accounts.Register(ctx, "Quinn", "secret2", "Other Quinn")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "username already taken", DetailOf(err))
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.accounts.EnsureAdmin(ctx, "admin", "admin123", "Administrator")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.accounts.EnsureAdmin(ctx, "admin", "other-password", "Administrator")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.accounts.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, model.RoleAdmin, u.Role())
}

func TestProfileAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "rosa", 2)
	b := f.user(t, "sam", -4)

	p, err := f.accounts.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.RemainingLeaveDays)
	_, err = f.accounts.Profile(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	reset, err := f.accounts.ResetLeaveDays(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultLeaveDays, reset.RemainingLeaveDays)
	_, err = f.accounts.ResetLeaveDays(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := f.accounts.ResetAllLeaveDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, DefaultLeaveDays, f.balance(t, b.ID))
}

func TestResetsWaitForRequesterLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "rita", 3)
	b := f.user(t, "sam", 4)

	unlock, err := f.locker.Lock(ctx, b.ID)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = f.accounts.ResetLeaveDays(short, b.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	short2, cancel2 := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel2()
	_, err = f.accounts.ResetAllLeaveDays(short2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 3, f.balance(t, a.ID))
	assert.Equal(t, 4, f.balance(t, b.ID))
	assert.Equal(t, 1, f.locker.size(), "a failed reset-all releases what it took")

	unlock()
	n, err := f.accounts.ResetAllLeaveDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, DefaultLeaveDays, f.balance(t, b.ID))
	assert.Equal(t, 0, f.locker.size())
}
