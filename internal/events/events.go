// Package events carries domain notifications out of the service layer after
// a transaction commits. Delivery is best effort: the database is the source
// of truth and a lost message never undoes a committed change.
package events

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

type Type string

const (
	HoldCreated       Type = "hold.created"
	HoldUpdated       Type = "hold.updated"
	HoldCancelled     Type = "hold.cancelled"
	HoldExpired       Type = "hold.expired"
	WaitlistChanged   Type = "waitlist.changed"
	WaitlistPromoted  Type = "waitlist.promoted"
	EnrollmentChanged Type = "enrollment.changed"
	CheckoutCompleted Type = "checkout.completed"
	PaymentFailed     Type = "payment.failed"
	InvoiceRefunded   Type = "invoice.refunded"
	SessionChanged    Type = "session.changed"
)

type Event struct {
	Type       Type      `json:"type"`
	SessionID  int64     `json:"session_id"`
	HoldUUID   string    `json:"hold_uuid,omitempty"`
	InvoiceID  int64     `json:"invoice_id,omitempty"`
	EntryID    int64     `json:"entry_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key is the partitioning key; events of one session stay ordered.
func (e Event) Key() string {
	return "session:" + strconv.FormatInt(e.SessionID, 10)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes ev and logs a failure instead of returning it. Callers use
// it from after-commit hooks where the change is already durable.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("event publish failed",
			slog.String("type", string(ev.Type)),
			slog.Int64("session_id", ev.SessionID),
			slog.Any("error", err),
		)
	}
}
