// Package live pushes session progress to the remote service for
// concurrent viewers.
//
// Every call is best-effort: failures are logged and never retried through
// the sync queue. Only cleanup (Remove) retries, and only a bounded number
// of times with a fixed delay so teardown never blocks indefinitely.
package live

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roach88/truthtrail/internal/clock"
	"github.com/roach88/truthtrail/internal/remote"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
)

// ErrCleanupAbandoned is returned by Remove after the attempt budget is spent.
var ErrCleanupAbandoned = errors.New("live session cleanup abandoned")

// Publisher sends LiveProgress upserts and removals.
// A Publisher with a nil client does nothing.
type Publisher struct {
	client   remote.Client
	clock    clock.Clock
	attempts int
	delay    time.Duration
	logger   zerolog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAttempts overrides DefaultAttempts. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(p *Publisher) {
		if n >= 1 {
			p.attempts = n
		}
	}
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a Publisher over client.
func New(client remote.Client, clk clock.Clock, opts ...Option) *Publisher {
	p := &Publisher{
		client:   client,
		clock:    clk,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push sends one progress upsert. Failures are logged, not returned.
func (p *Publisher) Push(ctx context.Context, progress remote.LiveProgress) {
	if !p.enabled() {
		return
	}
	progress.UpdatedAt = clock.EpochMillis(p.clock.Now())
	if err := p.client.UpsertLiveSession(ctx, progress.SessionID, progress); err != nil {
		p.logger.Warn().Err(err).Str("session_id", progress.SessionID).Msg("live progress push failed")
	}
}

// Finish pushes the terminal progress and then removes the live record.
func (p *Publisher) Finish(ctx context.Context, progress remote.LiveProgress) error {
	if !p.enabled() {
		return nil
	}
	p.Push(ctx, progress)
	return p.Remove(ctx, progress.SessionID)
}

// Remove deletes the live record for id, trying at most attempts times with
// delay between tries. Cancelling ctx stops the loop.
func (p *Publisher) Remove(ctx context.Context, id string) error {
	if !p.enabled() {
		return nil
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = p.client.RemoveLiveSession(ctx, id)
		if lastErr == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt >= p.attempts {
			break
		}
		p.logger.Debug().Err(lastErr).Int("attempt", attempt).Str("session_id", id).Msg("live cleanup retry")
		if err := p.clock.Sleep(ctx, p.delay); err != nil {
			return err
		}
	}

	p.logger.Warn().
		Err(lastErr).
		Str("session_id", id).
		Int("attempts", p.attempts).
		Msg("giving up on live session cleanup")
	return errors.Wrapf(ErrCleanupAbandoned, "session %s: %v", id, lastErr)
}

func (p *Publisher) enabled() bool {
	return p != nil && p.client != nil
}
