package scheduler

import (
	"context"
	"errors"

	"github.com/nordicstoday/nordics-today/internal/newsletter"
)

// Job names.
const (
	WeeklyDigest  = "weekly-digest"
	BreakingSweep = "breaking-news"
)

// DigestRunner is satisfied by *newsletter.Digest.
type DigestRunner interface {
	Run(ctx context.Context) (newsletter.DigestResult, error)
}

// BreakingRunner is satisfied by *push.BreakingNotifier.
type BreakingRunner interface {
	NotifyBreaking(ctx context.Context) (int, error)
}

// DigestJob sends the weekly digest. A week already sent, or a week with
// nothing to send, is not a failure.
func DigestJob(schedule string, d DigestRunner) Job {
	return Job{
		Name:     WeeklyDigest,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := d.Run(ctx)
			if errors.Is(err, newsletter.ErrAlreadySent) || errors.Is(err, newsletter.ErrNoArticles) {
				return nil
			}
			return err
		},
	}
}

// BreakingJob announces new breaking stories over web push.
func BreakingJob(schedule string, n BreakingRunner) Job {
	return Job{
		Name:     BreakingSweep,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := n.NotifyBreaking(ctx)
			return err
		},
	}
}
