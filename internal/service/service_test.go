package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/leave-request-service/internal/database"
	"github.com/iliyamo/leave-request-service/internal/database/dbtest"
	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/queue"
	"github.com/iliyamo/leave-request-service/internal/repository"
	"github.com/iliyamo/leave-request-service/internal/utils"
)

type mockPublisher struct {
	mock.Mock
	mu     sync.Mutex
	events []queue.LeaveEvent
}

func (m *mockPublisher) Publish(ctx context.Context, ev queue.LeaveEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) types() []queue.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.EventType, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	db       *sql.DB
	users    *repository.UserRepo
	requests *repository.LeaveRequestRepo
	ledger   *Ledger
	leaves   *LeaveService
	accounts *AccountService
	pub      *mockPublisher
	locker   *KeyedLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db, database.DriverSQLite)
	requests := repository.NewLeaveRequestRepo(db)
	ledger := NewLedger(users, DefaultLeaveDays)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	locker := NewKeyedLocker()
	return &fixture{
		db:       db,
		users:    users,
		requests: requests,
		ledger:   ledger,
		leaves:   NewLeaveService(db, users, requests, ledger, locker, pub),
		accounts: NewAccountService(db, users, ledger, utils.BcryptHasher{Cost: bcrypt.MinCost}, locker),
		locker:   locker,
		pub:      pub,
	}
}

func (f *fixture) user(t *testing.T, username string, days int) model.User {
	t.Helper()
	u := model.User{
		Username:           username,
		PasswordHash:       "x",
		FullName:           username,
		RemainingLeaveDays: days,
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

func (f *fixture) balance(t *testing.T, id uint64) int {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.RemainingLeaveDays
}
