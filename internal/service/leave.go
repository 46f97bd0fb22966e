package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/queue"
	"github.com/iliyamo/leave-request-service/internal/repository"
)

// EventPublisher receives lifecycle events after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.LeaveEvent) error
}

// LeaveService coordinates admission, the ledger and persistence for
// leave requests.  Creates, deletes and status changes for one requester
// run one at a time under the Locker, and each runs in a single
// transaction so the request rows and the balance never disagree.
type LeaveService struct {
	db        *sql.DB
	users     *repository.UserRepo
	requests  *repository.LeaveRequestRepo
	ledger    *Ledger
	locker    Locker
	publisher EventPublisher
	now       func() time.Time
}

// NewLeaveService wires a LeaveService.  A nil locker falls back to an
// in-process KeyedLocker and a nil publisher drops events.
func NewLeaveService(db *sql.DB, users *repository.UserRepo, requests *repository.LeaveRequestRepo,
	ledger *Ledger, locker Locker, publisher EventPublisher) *LeaveService {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &LeaveService{
		db:        db,
		users:     users,
		requests:  requests,
		ledger:    ledger,
		locker:    locker,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create admits and stores a pending request and debits its days from
// the requester's balance.
func (s *LeaveService) Create(ctx context.Context, requesterID uint64, reason string, start, end time.Time) (model.LeaveRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.LeaveRequest{}, newError(KindValidation, "reason is required")
	}
	start, end = dateOf(start), dateOf(end)

	unlock, err := s.locker.Lock(ctx, requesterID)
	if err != nil {
		return model.LeaveRequest{}, fmt.Errorf("lock requester: %w", err)
	}
	defer unlock()

	now := s.now()
	req := model.LeaveRequest{
		RequesterID: requesterID,
		Reason:      reason,
		StartDate:   start,
		EndDate:     end,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	days := DaysBetween(start, end)

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		user, err := s.users.GetByIDTx(ctx, tx, requesterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, "user %d not found", requesterID)
			}
			return fmt.Errorf("load requester: %w", err)
		}
		existing, err := s.requests.ListByRequesterTx(ctx, tx, requesterID)
		if err != nil {
			return fmt.Errorf("load existing requests: %w", err)
		}
		if err := Admit(existing, user.RemainingLeaveDays, start, end); err != nil {
			return err
		}
		if err := s.requests.CreateTx(ctx, tx, &req); err != nil {
			return fmt.Errorf("insert leave request: %w", err)
		}
		return s.ledger.Debit(ctx, tx, requesterID, days)
	})
	if err != nil {
		return model.LeaveRequest{}, err
	}

	s.publish(ctx, queue.EventLeaveCreated, req, "")
	return req, nil
}

// Get returns the request with the given id.
func (s *LeaveService) Get(ctx context.Context, id uint64) (model.LeaveRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return model.LeaveRequest{}, notFoundOr(err, "leave request %d not found", id)
	}
	return req, nil
}

// ListAll returns every request ordered by id.
func (s *LeaveService) ListAll(ctx context.Context) ([]model.LeaveRequest, error) {
	return s.requests.ListAll(ctx)
}

// ListByRequester returns the requester's requests ordered by id.
func (s *LeaveService) ListByRequester(ctx context.Context, requesterID uint64) ([]model.LeaveRequest, error) {
	return s.requests.ListByRequester(ctx, requesterID)
}

// Delete removes a pending request owned by requesterID and credits its
// days back.
func (s *LeaveService) Delete(ctx context.Context, id, requesterID uint64) error {
	unlock, err := s.locker.Lock(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("lock requester: %w", err)
	}
	defer unlock()

	var deleted model.LeaveRequest
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := s.requests.GetByIDTx(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "leave request %d not found", id)
		}
		if req.RequesterID != requesterID {
			return newError(KindUnauthorized, "leave request %d belongs to another user", id)
		}
		if req.Status != model.StatusPending {
			return newError(KindInvalidStateTransition, "cannot delete a %s leave request", req.Status)
		}
		if err := s.ledger.Credit(ctx, tx, requesterID, DaysBetween(req.StartDate, req.EndDate)); err != nil {
			return err
		}
		if err := s.requests.DeleteTx(ctx, tx, id); err != nil {
			return notFoundOr(err, "leave request %d not found", id)
		}
		deleted = req
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, queue.EventLeaveDeleted, deleted, "")
	return nil
}

// SetStatus moves a pending request to approved or denied.  Setting the
// current status again is a no-op.  Denial releases the dates and
// credits the days back; approval leaves the balance alone.  Whether the
// caller may do this is checked before the call.
func (s *LeaveService) SetStatus(ctx context.Context, id uint64, status model.LeaveStatus) (model.LeaveRequest, error) {
	if !status.Valid() {
		return model.LeaveRequest{}, newError(KindValidation, "unknown status %q", status)
	}
	if status == model.StatusPending {
		return model.LeaveRequest{}, newError(KindValidation, "status must be %q or %q", model.StatusApproved, model.StatusDenied)
	}

	// The requester is needed before the lock can be taken.
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return model.LeaveRequest{}, notFoundOr(err, "leave request %d not found", id)
	}
	unlock, err := s.locker.Lock(ctx, current.RequesterID)
	if err != nil {
		return model.LeaveRequest{}, fmt.Errorf("lock requester: %w", err)
	}
	defer unlock()

	var (
		updated  model.LeaveRequest
		previous model.LeaveStatus
		changed  bool
	)
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := s.requests.GetByIDTx(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "leave request %d not found", id)
		}
		previous = req.Status
		if req.Status == status {
			updated = req
			return nil
		}
		if req.Status.Terminal() {
			return newError(KindInvalidStateTransition, "cannot change a %s leave request to %s", req.Status, status)
		}
		at := s.now()
		if err := s.requests.UpdateStatusTx(ctx, tx, id, status, at); err != nil {
			return notFoundOr(err, "leave request %d not found", id)
		}
		if status == model.StatusDenied {
			if err := s.ledger.Credit(ctx, tx, req.RequesterID, DaysBetween(req.StartDate, req.EndDate)); err != nil {
				return err
			}
		}
		req.Status = status
		req.UpdatedAt = at
		updated = req
		changed = true
		return nil
	})
	if err != nil {
		return model.LeaveRequest{}, err
	}

	if changed {
		s.publish(ctx, queue.EventLeaveStatusChanged, updated, string(previous))
	}
	return updated, nil
}

func (s *LeaveService) publish(ctx context.Context, typ queue.EventType, req model.LeaveRequest, previous string) {
	ev := queue.LeaveEvent{
		ID:             uuid.NewString(),
		Type:           typ,
		LeaveRequestID: req.ID,
		RequesterID:    req.RequesterID,
		Reason:         req.Reason,
		StartDate:      req.StartDate.Format(repository.DateLayout),
		EndDate:        req.EndDate.Format(repository.DateLayout),
		Status:         string(req.Status),
		PreviousStatus: previous,
		Days:           DaysBetween(req.StartDate, req.EndDate),
		OccurredAt:     s.now().Format(time.RFC3339),
	}
	// Event delivery is best effort; the change is already committed.
	if err := s.publisher.Publish(ctx, ev); err != nil {
		zap.L().Warn("leave event not published",
			zap.String("type", string(typ)), zap.Uint64("leave_request_id", req.ID), zap.Error(err))
	}
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, format, args...)
	}
	return err
}
