package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/scheduler"
)

func TestAdd_RejectsBadJobs(t *testing.T) {
	s := scheduler.New(logger.NewNop())
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  scheduler.Job
	}{
		{"no name", scheduler.Job{Schedule: "* * * * *", Run: noop}},
		{"no func", scheduler.Job{Name: "x", Schedule: "* * * * *"}},
		{"six fields", scheduler.Job{Name: "x", Schedule: "0 0 8 * * 0", Run: noop}},
		{"garbage", scheduler.Job{Name: "x", Schedule: "every sunday", Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Add(tt.job))
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestAdd_Duplicate(t *testing.T) {
	s := scheduler.New(logger.NewNop())
	job := scheduler.Job{Name: "x", Schedule: "0 8 * * 0", Run: func(context.Context) error { return nil }}
	require.NoError(t, s.Add(job))
	assert.ErrorIs(t, s.Add(job), scheduler.ErrDuplicateJob)
}

func TestTrigger(t *testing.T) {
	s := scheduler.New(logger.NewNop(), scheduler.WithJobTimeout(50*time.Millisecond))
	boom := errors.New("boom")

	var deadline bool
	require.NoError(t, s.Add(scheduler.Job{Name: "fail", Schedule: "*/10 * * * *", Run: func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return boom
	}}))
	require.NoError(t, s.Add(scheduler.Job{Name: "panic", Schedule: "*/10 * * * *", Run: func(context.Context) error {
		panic("bad")
	}}))

	assert.ErrorIs(t, s.Trigger(context.Background(), "fail"), boom)
	assert.True(t, deadline, "runs carry a timeout")
	assert.ErrorContains(t, s.Trigger(context.Background(), "panic"), "panicked")
	assert.ErrorIs(t, s.Trigger(context.Background(), "missing"), scheduler.ErrUnknownJob)
}

func TestTrigger_NoOverlap(t *testing.T) {
	s := scheduler.New(logger.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Add(scheduler.Job{Name: "slow", Schedule: "0 8 * * 0", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.Trigger(context.Background(), "slow"), scheduler.ErrRunning)
	close(release)
	assert.NoError(t, <-done)
}

func TestStartStop_FiresOnSchedule(t *testing.T) {
	s := scheduler.New(logger.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.Add(scheduler.Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}))

	s.Start()
	assert.False(t, s.Next("tick").IsZero())
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

type digestStub struct{ err error }

func (d digestStub) Run(context.Context) (newsletter.DigestResult, error) {
	return newsletter.DigestResult{}, d.err
}

type breakingStub struct {
	calls int
	err   error
}

func (b *breakingStub) NotifyBreaking(context.Context) (int, error) {
	b.calls++
	return 1, b.err
}

func TestDigestJob_ExpectedOutcomesAreNotFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"sent", nil, false},
		{"already sent", newsletter.ErrAlreadySent, false},
		{"no articles", newsletter.ErrNoArticles, false},
		{"no subscribers", newsletter.ErrNoSubscribers, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := scheduler.DigestJob("0 8 * * 0", digestStub{err: tt.err})
			assert.Equal(t, scheduler.WeeklyDigest, job.Name)
			err := job.Run(context.Background())
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestBreakingJob(t *testing.T) {
	stub := &breakingStub{}
	s := scheduler.New(logger.NewNop())
	require.NoError(t, s.Add(scheduler.BreakingJob("*/10 * * * *", stub)))

	require.NoError(t, s.Trigger(context.Background(), scheduler.BreakingSweep))
	stub.err = errors.New("redis down")
	assert.Error(t, s.Trigger(context.Background(), scheduler.BreakingSweep))
	assert.Equal(t, 2, stub.calls)
}
