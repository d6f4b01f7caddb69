package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hypeflow/internal/observability"
)

// Default trigger timing.
const (
	OnChainInterval     = 45 * time.Second
	OnChainDelay        = 3 * time.Second
	CollectionInterval  = 90 * time.Second
	AggregationInterval = 15 * time.Second
	AggregationWarmup   = 10 * time.Second
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusPanic   = "panic"
	StatusSkipped = "skipped"
)

// Job is the work a trigger runs on every tick.
type Job func(ctx context.Context) error

// RunInfo describes a trigger and its most recent run.
type RunInfo struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         int           `json:"runs"`
	Skipped      int           `json:"skipped"`
	LastStart    time.Time     `json:"lastStart,omitzero"`
	LastDuration time.Duration `json:"lastDuration"`
	LastStatus   string        `json:"lastStatus,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
}

// Trigger runs a job on a fixed interval after an initial delay. A tick
// that arrives while the previous run is still going is skipped, and a
// panicking job is recovered and reported.
type Trigger struct {
	name     string
	interval time.Duration
	delay    time.Duration
	job      Job
	logger   *zap.Logger
	clock    func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	info    RunInfo
}

// NewTrigger creates a trigger. A zero delay runs the first tick after one interval.
func NewTrigger(name string, interval, delay time.Duration, job Job, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		name:     name,
		interval: interval,
		delay:    delay,
		job:      job,
		logger:   logger.With(zap.String("trigger", name)),
		clock:    time.Now,
		info:     RunInfo{Name: name, Interval: interval},
	}
}

// Name returns the trigger name.
func (t *Trigger) Name() string { return t.name }

// Info returns a snapshot of the trigger's run history.
func (t *Trigger) Info() RunInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// Run ticks until ctx is cancelled, then waits for an in-flight job.
func (t *Trigger) Run(ctx context.Context) error {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	first := t.delay
	if first <= 0 {
		first = t.interval
	}
	timer := time.NewTimer(first)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	fire := func() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			t.RunOnce(ctx)
		}()
	}
	fire()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("trigger stopping")
			return nil
		case <-ticker.C:
			fire()
		}
	}
}

// RunOnce runs the job now unless a run is already in progress, and
// returns the resulting status.
func (t *Trigger) RunOnce(ctx context.Context) (status string) {
	if !t.running.CompareAndSwap(false, true) {
		t.mu.Lock()
		t.info.Skipped++
		t.mu.Unlock()
		observability.RecordTriggerRun(t.name, StatusSkipped, 0)
		t.logger.Debug("previous run still in progress, skipping tick")
		return StatusSkipped
	}
	defer t.running.Store(false)

	start := t.clock()
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			status = StatusPanic
			runErr = fmt.Errorf("panic: %v", r)
			t.logger.Error("trigger panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		elapsed := t.clock().Sub(start)

		t.mu.Lock()
		t.info.Runs++
		t.info.LastStart = start
		t.info.LastDuration = elapsed
		t.info.LastStatus = status
		t.info.LastError = ""
		if runErr != nil {
			t.info.LastError = runErr.Error()
		}
		t.mu.Unlock()

		observability.RecordTriggerRun(t.name, status, elapsed.Seconds())
	}()

	runErr = t.job(ctx)
	if runErr != nil {
		t.logger.Warn("trigger run failed", zap.Error(runErr))
		return StatusError
	}
	return StatusOK
}

// Scheduler runs a set of independent triggers.
type Scheduler struct {
	triggers []*Trigger
	logger   *zap.Logger
}

// New creates a scheduler.
func New(logger *zap.Logger, triggers ...*Trigger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{triggers: triggers, logger: logger}
}

// Add registers another trigger. It must be called before Run.
func (s *Scheduler) Add(t *Trigger) {
	s.triggers = append(s.triggers, t)
}

// Run starts every trigger on its own goroutine and blocks until ctx is
// cancelled and all of them have stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.triggers {
		s.logger.Info("trigger scheduled",
			zap.String("trigger", t.name),
			zap.Duration("interval", t.interval),
			zap.Duration("delay", t.delay),
		)
		g.Go(func() error { return t.Run(ctx) })
	}
	return g.Wait()
}

// Status returns the run history of every trigger.
func (s *Scheduler) Status() []RunInfo {
	out := make([]RunInfo, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = t.Info()
	}
	return out
}
