package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/leave-request-service/internal/model"
)

// DateLayout is the storage format of leave_requests.start_date/end_date.
const DateLayout = "2006-01-02"

const leaveColumns = "id, requester_id, reason, start_date, end_date, status, created_at, updated_at"

// LeaveRequestRepo provides CRUD operations for leave requests.  Listings
// are ordered by id so callers always see creation order.
type LeaveRequestRepo struct {
	db *sql.DB
}

// NewLeaveRequestRepo returns a new LeaveRequestRepo bound to db.
func NewLeaveRequestRepo(db *sql.DB) *LeaveRequestRepo { return &LeaveRequestRepo{db: db} }

// CreateTx inserts req within tx and populates its generated ID.
func (r *LeaveRequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, req *model.LeaveRequest) error {
	const q = `INSERT INTO leave_requests (requester_id, reason, start_date, end_date, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		req.RequesterID, req.Reason,
		req.StartDate.UTC().Format(DateLayout), req.EndDate.UTC().Format(DateLayout),
		string(req.Status), toMillis(req.CreatedAt), toMillis(req.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// GetByID returns a single leave request or ErrNotFound.
func (r *LeaveRequestRepo) GetByID(ctx context.Context, id uint64) (model.LeaveRequest, error) {
	return getLeaveRequest(ctx, r.db, id)
}

// GetByIDTx is GetByID within tx.
func (r *LeaveRequestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.LeaveRequest, error) {
	return getLeaveRequest(ctx, tx, id)
}

// ListAll returns every leave request.
func (r *LeaveRequestRepo) ListAll(ctx context.Context) ([]model.LeaveRequest, error) {
	return listLeaveRequests(ctx, r.db, "SELECT "+leaveColumns+" FROM leave_requests ORDER BY id")
}

// ListByRequester returns the requests submitted by requesterID.
func (r *LeaveRequestRepo) ListByRequester(ctx context.Context, requesterID uint64) ([]model.LeaveRequest, error) {
	return listLeaveRequests(ctx, r.db,
		"SELECT "+leaveColumns+" FROM leave_requests WHERE requester_id = ? ORDER BY id", requesterID)
}

// ListByRequesterTx is ListByRequester within tx.
func (r *LeaveRequestRepo) ListByRequesterTx(ctx context.Context, tx *sql.Tx, requesterID uint64) ([]model.LeaveRequest, error) {
	return listLeaveRequests(ctx, tx,
		"SELECT "+leaveColumns+" FROM leave_requests WHERE requester_id = ? ORDER BY id", requesterID)
}

// UpdateStatusTx sets the status of a request.  It returns ErrNotFound
// when no row has the given id.
func (r *LeaveRequestRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.LeaveStatus, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE leave_requests SET status = ?, updated_at = ? WHERE id = ?", string(status), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("update leave request status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx removes a request.  It returns ErrNotFound when no row has the
// given id.
func (r *LeaveRequestRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func getLeaveRequest(ctx context.Context, q queryer, id uint64) (model.LeaveRequest, error) {
	rows, err := listLeaveRequests(ctx, q, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return model.LeaveRequest{}, err
	}
	if len(rows) == 0 {
		return model.LeaveRequest{}, ErrNotFound
	}
	return rows[0], nil
}

func listLeaveRequests(ctx context.Context, q queryer, query string, args ...any) ([]model.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	defer rows.Close()
	out := make([]model.LeaveRequest, 0)
	for rows.Next() {
		var (
			lr               model.LeaveRequest
			start, end       string
			status           string
			created, updated int64
		)
		if err := rows.Scan(&lr.ID, &lr.RequesterID, &lr.Reason, &start, &end, &status, &created, &updated); err != nil {
			return nil, err
		}
		if lr.StartDate, err = time.Parse(DateLayout, start); err != nil {
			return nil, fmt.Errorf("leave request %d start_date: %w", lr.ID, err)
		}
		if lr.EndDate, err = time.Parse(DateLayout, end); err != nil {
			return nil, fmt.Errorf("leave request %d end_date: %w", lr.ID, err)
		}
		lr.Status = model.LeaveStatus(status)
		lr.CreatedAt = fromMillis(created)
		lr.UpdatedAt = fromMillis(updated)
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
