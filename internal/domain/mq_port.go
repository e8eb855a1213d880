package domain

import (
	"context"
	"time"
)

type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublisherPort interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
}

type SubscriberPort interface {
	Subscribe(ctx context.Context, topic, groupID string) (<-chan Message, error)
}

// PaymentEvent is published after every checkpoint.
type PaymentEvent struct {
	EventID          string        `json:"event_id"`
	PaymentRequestID string        `json:"payment_request_id"`
	OrganizationID   string        `json:"organization_id"`
	TransferGroup    string        `json:"transfer_group"`
	Status           PaymentStatus `json:"status"`
	RetryAttempt     int           `json:"retry_attempt"`
	Checkpoint       string        `json:"checkpoint"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// EventDeduplicator reports whether an inbound event id was already seen,
// marking it as seen otherwise. Forget clears the mark so that a failed
// delivery can be processed again.
type EventDeduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Locker serialises work on one key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
