package port

import "context"

// EventWriter appends an event to the transactional outbox.
type EventWriter interface {
	Insert(ctx context.Context, eventID, topic, key string, payload any) error
}

// Notifier triggers a best-effort, fire-and-forget notification.
// Checkout never blocks on it and ignores its failures beyond logging.
type Notifier interface {
	OrderCreated(ctx context.Context, orderID, orderNumber, email string) error
}
