package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-request-service/internal/database"
	"github.com/iliyamo/leave-request-service/internal/database/dbtest"
	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/repository"
)

func day(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

func insertLeave(t *testing.T, db *sql.DB, repo *repository.LeaveRequestRepo, lr *model.LeaveRequest) {
	t.Helper()
	err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return repo.CreateTx(context.Background(), tx, lr)
	})
	require.NoError(t, err)
}

func TestLeaveRequestRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db, database.DriverSQLite)
	repo := repository.NewLeaveRequestRepo(db)
	u := newUser(t, users, "dana", 10)
	now := time.Date(2026, time.March, 1, 12, 30, 0, 0, time.UTC)

	lr := model.LeaveRequest{
		RequesterID: u.ID,
		Reason:      "family trip",
		StartDate:   day(time.April, 6),
		EndDate:     day(time.April, 10),
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	insertLeave(t, db, repo, &lr)
	require.NotZero(t, lr.ID)

	got, err := repo.GetByID(context.Background(), lr.ID)
	require.NoError(t, err)
	assert.Equal(t, lr.ID, got.ID)
	assert.Equal(t, lr.RequesterID, got.RequesterID)
	assert.Equal(t, lr.Reason, got.Reason)
	assert.True(t, lr.StartDate.Equal(got.StartDate))
	assert.True(t, lr.EndDate.Equal(got.EndDate))
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestLeaveRequestListingOrderAndFilter(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db, database.DriverSQLite)
	repo := repository.NewLeaveRequestRepo(db)
	a := newUser(t, users, "a", 10)
	b := newUser(t, users, "b", 10)

	var ids []uint64
	for i, owner := range []uint64{a.ID, b.ID, a.ID} {
		lr := model.LeaveRequest{
			RequesterID: owner,
			Reason:      "r",
			StartDate:   day(time.May, 1+i*3),
			EndDate:     day(time.May, 2+i*3),
			Status:      model.StatusPending,
		}
		insertLeave(t, db, repo, &lr)
		ids = append(ids, lr.ID)
	}

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := range all {
		assert.Equal(t, ids[i], all[i].ID)
	}

	mine, err := repo.ListByRequester(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[0], mine[0].ID)
	assert.Equal(t, ids[2], mine[1].ID)

	none, err := repo.ListByRequester(context.Background(), 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLeaveRequestStatusAndDelete(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db, database.DriverSQLite)
	repo := repository.NewLeaveRequestRepo(db)
	u := newUser(t, users, "erin", 10)
	ctx := context.Background()

	lr := model.LeaveRequest{RequesterID: u.ID, Reason: "x", StartDate: day(time.June, 1), EndDate: day(time.June, 1), Status: model.StatusPending}
	insertLeave(t, db, repo, &lr)

	at := time.Date(2026, time.June, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.UpdateStatusTx(ctx, tx, lr.ID, model.StatusApproved, at)
	}))
	got, err := repo.GetByID(ctx, lr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.True(t, at.Equal(got.UpdatedAt))

	require.NoError(t, repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.DeleteTx(ctx, tx, lr.ID)
	}))
	_, err = repo.GetByID(ctx, lr.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.DeleteTx(ctx, tx, lr.ID)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	err = repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.UpdateStatusTx(ctx, tx, lr.ID, model.StatusDenied, at)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
