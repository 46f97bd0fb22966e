package model

import "time"

// LeaveStatus is the lifecycle state of a leave request.
type LeaveStatus string

const (
	StatusPending  LeaveStatus = "pending"
	StatusApproved LeaveStatus = "approved"
	StatusDenied   LeaveStatus = "denied"
)

// Valid reports whether s is one of the known statuses.
func (s LeaveStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s LeaveStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// LeaveRequest records a user's request for time off.  StartDate and
// EndDate are calendar days (UTC midnight) and the range is inclusive.
//
// Fields:
//  ID          – primary key identifier; also the listing order.
//  RequesterID – user who submitted the request.
//  Reason      – free-form justification.
//  StartDate   – first day of leave.
//  EndDate     – last day of leave.
//  Status      – pending, approved or denied.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last status change.
type LeaveRequest struct {
	ID          uint64      // leave_requests.id
	RequesterID uint64      // leave_requests.requester_id
	Reason      string      // leave_requests.reason
	StartDate   time.Time   // leave_requests.start_date (YYYY-MM-DD)
	EndDate     time.Time   // leave_requests.end_date (YYYY-MM-DD)
	Status      LeaveStatus // leave_requests.status
	CreatedAt   time.Time   // leave_requests.created_at (unix millis)
	UpdatedAt   time.Time   // leave_requests.updated_at (unix millis)
}
