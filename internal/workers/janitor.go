package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger removes market samples older than maxAge and reports how many went
type Purger interface {
	PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Janitor periodically purges stale samples so appraisals are not priced on
// an outdated market.
type Janitor struct {
	cron     *cron.Cron
	purger   Purger
	schedule string
	maxAge   time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// cronParser accepts a leading seconds field, matching cron.WithSeconds
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewJanitor creates a janitor; schedule is a six-field cron expression
func NewJanitor(purger Purger, schedule string, maxAge time.Duration, logger *zap.Logger) (*Janitor, error) {
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("max sample age must be positive, got %s", maxAge)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cron:     cron.New(cron.WithParser(cronParser)),
		purger:   purger,
		schedule: schedule,
		maxAge:   maxAge,
		timeout:  5 * time.Minute,
		logger:   logger,
	}, nil
}

// Start schedules the purge job
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("Sample janitor started",
		zap.String("schedule", j.schedule),
		zap.Duration("max_age", j.maxAge))
	return nil
}

// Stop stops the scheduler and waits for a running purge to finish. The
// lock is released before waiting because the purge job takes it too.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	ctx := j.cron.Stop()
	j.mu.Unlock()

	<-ctx.Done()
	j.logger.Info("Sample janitor stopped")
}

// RunOnce purges immediately
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := j.purger.PurgeStale(ctx, j.maxAge)
	if err != nil {
		j.logger.Error("Sample purge failed", zap.Error(err))
		return 0, err
	}

	j.mu.Lock()
	j.lastRun = start
	j.mu.Unlock()

	j.logger.Info("Sample purge completed",
		zap.Int64("removed", removed),
		zap.Duration("duration", time.Since(start)))
	return removed, nil
}

// LastRun returns the start time of the last successful purge
func (j *Janitor) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}
