package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nordicstoday/nordics-today/infrastructure/circuitbreaker"
)

var errBoom = errors.New("boom")

func TestBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	var transitions []string
	b := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		Now:              func() time.Time { return now },
		OnStateChange: func(from, to circuitbreaker.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()
	fail := func(context.Context) error { return errBoom }
	ok := func(context.Context) error { return nil }

	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, circuitbreaker.Closed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, circuitbreaker.Open, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, circuitbreaker.Closed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, Cooldown: time.Second, Now: func() time.Time { return now }})
	ctx := context.Background()

	_ = b.Execute(ctx, func(context.Context) error { return errBoom })
	now = now.Add(2 * time.Second)
	_ = b.Execute(ctx, func(context.Context) error { return errBoom })

	assert.Equal(t, circuitbreaker.Open, b.State())
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1})
	err := b.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.Closed, b.State())
}
