// Package sweeper removes expired buckets in the background. Downloads
// already refuse expired buckets at request time, so the sweeper only
// reclaims disk and metadata; its interval bounds how long dead data lingers,
// not how long it stays reachable.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

// DefaultInterval matches the cadence expired data is reclaimed at.
const DefaultInterval = 15 * time.Minute

// Metadata is the slice of the metadata store the sweeper needs.
type Metadata interface {
	ListExpiredBuckets(ctx context.Context, now int64) ([]storage.Bucket, error)
	DeleteBucket(ctx context.Context, id string) error
}

// Sweeper periodically deletes buckets whose expiry has passed.
type Sweeper struct {
	db       Metadata
	files    *contentstore.Store
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval overrides the sweep cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func New(db Metadata, files *contentstore.Store, log *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		db:       db,
		files:    files,
		log:      log,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes every expired bucket once and returns how many were removed.
// Content is deleted before metadata so a failure leaves the record behind
// for the next pass instead of orphaning bytes on disk. Failures are logged
// and skipped; one broken bucket must not stall the rest.
func (s *Sweeper) Sweep(ctx context.Context) int {
	expired, err := s.db.ListExpiredBuckets(ctx, s.now().Unix())
	if err != nil {
		s.log.ErrorContext(ctx, "expired bucket listing failed", "error", err)
		return 0
	}

	removed := 0
	for _, b := range expired {
		if err := s.files.DeleteBucket(ctx, b.ID); err != nil {
			s.log.ErrorContext(ctx, "expired bucket content delete failed",
				"bucket", b.ID, "error", err)
			continue
		}
		if err := s.db.DeleteBucket(ctx, b.ID); err != nil {
			s.log.ErrorContext(ctx, "expired bucket metadata delete failed",
				"bucket", b.ID, "error", err)
			continue
		}
		s.log.InfoContext(ctx, "expired bucket removed", "bucket", b.ID, "name", b.Name)
		removed++
	}
	return removed
}
