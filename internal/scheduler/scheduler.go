// Package scheduler runs the recurring newsletter and push jobs on cron
// schedules inside the server process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
)

// DefaultJobTimeout bounds a single job run when none is configured.
const DefaultJobTimeout = 10 * time.Minute

var (
	// ErrUnknownJob is returned by Trigger for a name never added.
	ErrUnknownJob = errors.New("unknown job")
	// ErrDuplicateJob is returned by Add when the name is taken.
	ErrDuplicateJob = errors.New("job already scheduled")
	// ErrRunning is returned when a job is triggered while a run is active.
	ErrRunning = errors.New("job already running")
)

// Func is one unit of scheduled work.
type Func func(ctx context.Context) error

// Job names a Func and the cron expression it runs on.
type Job struct {
	Name     string
	Schedule string
	Run      Func
}

type entry struct {
	job     Job
	id      cron.EntryID
	running sync.Mutex
}

// Scheduler wraps a cron runner. Runs of the same job never overlap and
// every run gets its own timeout.
type Scheduler struct {
	log     logger.Logger
	cron    *cron.Cron
	parser  cron.Parser
	timeout time.Duration
	loc     *time.Location

	mu      sync.RWMutex
	entries map[string]*entry

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJobTimeout overrides DefaultJobTimeout.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation evaluates schedules in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a stopped scheduler.
func New(log logger.Logger, opts ...Option) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:     log,
		parser:  parser,
		timeout: DefaultJobTimeout,
		loc:     time.UTC,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))
	return s
}

// Add validates the schedule and registers the job.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run func")
	}
	schedule, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}

	e := &entry{job: job}
	e.id = s.cron.Schedule(schedule, cron.FuncJob(func() {
		_ = s.run(s.ctx, e)
	}))
	s.entries[job.Name] = e

	s.log.Info("Job scheduled",
		logger.String("job", job.Name),
		logger.String("schedule", job.Schedule),
		logger.Time("next_run", schedule.Next(time.Now().In(s.loc))))
	return nil
}

// Start begins firing jobs. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", logger.Int("jobs", s.Len()))
}

// Stop halts the cron loop, cancels running jobs and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.log.Info("Stopping scheduler")
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Trigger runs a job immediately, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Next reports when the named job fires next. Zero until Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

func (s *Scheduler) run(parent context.Context, e *entry) error {
	if !e.running.TryLock() {
		s.log.Warn("Skipping job run, previous run still active", logger.String("job", e.job.Name))
		return fmt.Errorf("%w: %s", ErrRunning, e.job.Name)
	}
	defer e.running.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	log := s.log.With(logger.String("job", e.job.Name))
	log.Info("Job started")

	err := s.safeRun(ctx, e.job.Run)
	if err != nil {
		log.Error("Job failed", logger.Error(err), logger.Duration("duration", time.Since(start)))
		return err
	}
	log.Info("Job completed", logger.Duration("duration", time.Since(start)))
	return nil
}

func (s *Scheduler) safeRun(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}
