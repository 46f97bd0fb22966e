package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultAuditLog is where the consumer appends one line per event.
const DefaultAuditLog = "logs/leave.log"

// AuditConsumer listens on the leave.events queue and appends each event
// to an audit log file.
type AuditConsumer struct {
	URL     string
	LogPath string
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// messages until ctx is cancelled.  Broker failures are retried with
// exponential backoff capped at 30s; a message that cannot be handled
// is rejected without requeue so the loop keeps going.
func (c AuditConsumer) Run(ctx context.Context) error {
	url := c.URL
	if url == "" {
		url = DefaultURL
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			zap.L().Warn("audit-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		zap.L().Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		zap.L().Warn("audit-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(LeaveEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(LeaveEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, c.logPath()); err != nil {
				zap.L().Error("audit-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c AuditConsumer) logPath() string {
	if c.LogPath == "" {
		return DefaultAuditLog
	}
	return c.LogPath
}

// HandleMessage decodes one event and appends it to the file at path.
func HandleMessage(body []byte, path string) error {
	var ev LeaveEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human-friendly log line.
func FormatLine(ev LeaveEvent) string {
	line := fmt.Sprintf("[%s] %s | leave_request_id=%d | requester_id=%d | range=%s..%s | days=%d | status=%s",
		ev.OccurredAt, ev.Type, ev.LeaveRequestID, ev.RequesterID, ev.StartDate, ev.EndDate, ev.Days, ev.Status)
	if ev.PreviousStatus != "" {
		line += " | previous_status=" + ev.PreviousStatus
	}
	return line + fmt.Sprintf(" | reason=%q\n", ev.Reason)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
