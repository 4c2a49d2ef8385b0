package application

import "context"

// Sender delivers a rendered notification to its audience.
type Sender interface {
	Notify(ctx context.Context, subject, message string) error
}

// ProcessedStore remembers which events already produced their side effect.
// *idempotency.Store satisfies it.
type ProcessedStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkDone(ctx context.Context, key string) error
}
