package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the scheduler period when none is configured.
const DefaultInterval = 30 * time.Second

// AccountSource reports which accounts had activity in a window.
type AccountSource interface {
	// AccountsWithRecentActivity returns accounts active at or after since.
	AccountsWithRecentActivity(ctx context.Context, since time.Time) ([]string, error)
}

// Scheduler periodically enqueues accounts with recent activity.
//
// Each tick covers activity since the previous successful tick. When the
// source fails the error is logged and the window start is kept, so the next
// tick covers the missed interval as well.
type Scheduler struct {
	source   AccountSource
	queue    *Queue
	interval time.Duration
	logger   Logger
	now      func() time.Time

	mu    sync.Mutex
	since time.Time
}

// NewScheduler creates a Scheduler.
//
// Parameters:
//   - source: Directory answering the activity query
//   - queue: Queue receiving account IDs
//   - interval: Tick period (DefaultInterval when <= 0)
//   - logger: Logger instance (may be nil)
func NewScheduler(source AccountSource, queue *Queue, interval time.Duration, logger Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		source:   source,
		queue:    queue,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the scheduler's time source. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run ticks every interval until ctx is cancelled.
// The first window starts one interval before Run is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.since.IsZero() {
		s.since = s.now().Add(-s.interval)
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("webhook scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("webhook scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scan and returns the number of accounts newly queued.
// A panic in the source is logged and treated like a failed query.
func (s *Scheduler) Tick(ctx context.Context) (added int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("webhook scheduling panicked",
				"since", s.since,
				"error", fmt.Errorf("%w: %v", ErrPanic, r),
			)
			added = 0
		}
	}()

	now := s.now()
	if s.since.IsZero() {
		s.since = now.Add(-s.interval)
	}

	ids, err := s.source.AccountsWithRecentActivity(ctx, s.since)
	if err != nil {
		s.logger.Error("webhook scheduling failed",
			"since", s.since,
			"error", err,
		)
		return 0
	}

	for _, id := range ids {
		if s.queue.Enqueue(id) {
			added++
		}
	}
	s.since = now

	if len(ids) > 0 {
		s.logger.Debug("webhook accounts scheduled",
			"active", len(ids),
			"queued", added,
			"pending", s.queue.Len(),
		)
	}
	return added
}
