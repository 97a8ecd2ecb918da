// Package attempt records finished verification attempts without ever
// blocking the flow that produced them.
package attempt

import (
	"context"
	"log/slog"

	"veriflow/internal/attempt/models"
	"veriflow/internal/attempt/store"
)

const defaultInboxSize = 256

// Publisher fans attempts out to an external sink. Optional.
type Publisher interface {
	Publish(ctx context.Context, a models.Attempt) error
}

// Recorder accepts attempts on a buffered channel; a background worker
// persists them and fans them out. A full inbox drops the attempt rather
// than stalling a verification.
type Recorder struct {
	store     store.Store
	publisher Publisher
	inbox     chan models.Attempt
	logger    *slog.Logger
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithPublisher attaches an external sink fed after the store append.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

// WithInboxSize overrides the channel buffer, mainly for tests.
func WithInboxSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.inbox = make(chan models.Attempt, n)
		}
	}
}

func NewRecorder(s store.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: s,
		inbox: make(chan models.Attempt, defaultInboxSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record enqueues the attempt. It never blocks; on a full inbox the attempt
// is dropped and logged.
func (r *Recorder) Record(_ context.Context, a models.Attempt) {
	select {
	case r.inbox <- a:
	default:
		if r.logger != nil {
			r.logger.Warn("attempt inbox full, dropping record",
				"attempt_id", a.ID,
				"user_id", a.UserID,
			)
		}
	}
}

// Run consumes the inbox until the context is cancelled. Store and publish
// failures are logged and skipped; history is best effort.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-r.inbox:
			if err := r.store.Append(ctx, a); err != nil {
				if r.logger != nil {
					r.logger.Error("attempt append failed",
						"attempt_id", a.ID,
						"error", err,
					)
				}
				continue
			}
			if r.publisher != nil {
				if err := r.publisher.Publish(ctx, a); err != nil && r.logger != nil {
					r.logger.Error("attempt publish failed",
						"attempt_id", a.ID,
						"error", err,
					)
				}
			}
		}
	}
}
