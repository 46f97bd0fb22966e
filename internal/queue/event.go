// Package queue defines the leave-request events exchanged over RabbitMQ,
// the publisher used by the service layer and the audit consumer.
package queue

// LeaveEventsQueue is the durable queue all leave-request events go to.
const LeaveEventsQueue = "leave.events"

// EventType names what happened to a leave request.
type EventType string

const (
	EventLeaveCreated       EventType = "leave_request.created"
	EventLeaveDeleted       EventType = "leave_request.deleted"
	EventLeaveStatusChanged EventType = "leave_request.status_changed"
)

// LeaveEvent is published after a lifecycle change has been committed.
// It carries enough information for downstream consumers to log or
// notify without querying the primary database.
type LeaveEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	LeaveRequestID uint64    `json:"leave_request_id"`
	RequesterID    uint64    `json:"requester_id"`
	Reason         string    `json:"reason"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Days           int       `json:"days"`
	OccurredAt     string    `json:"occurred_at"`
}
