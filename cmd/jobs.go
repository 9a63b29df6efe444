package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/push"
)

var (
	errNoSender = errors.New("newsletter sending is not configured (newsletter.resend_api_key)")
	errNoDigest = errors.New("weekly digest is not configured (digest.anthropic_api_key and newsletter.resend_api_key)")
	errNoPush   = errors.New("push is not configured (push.vapid_public_key and push.vapid_private_key)")
	errNoRedis  = errors.New("breaking alerts need redis (redis.address)")
)

// withApp runs fn against a fully wired app and releases it afterwards.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func readFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func sendNewsletterCommand() *cobra.Command {
	var subject, htmlPath, textPath string

	cmd := &cobra.Command{
		Use:   "send-newsletter",
		Short: "Mail a prepared issue to every active subscriber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			html, err := readFile(htmlPath)
			if err != nil {
				return err
			}
			text, err := readFile(textPath)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if a.sender == nil {
					return errNoSender
				}
				res, sendErr := a.sender.Send(ctx, newsletter.Message{Subject: subject, HTML: html, Text: text})
				if errors.Is(sendErr, newsletter.ErrNoSubscribers) {
					a.log.Info("No active subscribers")
					return nil
				}
				if sendErr != nil {
					return sendErr
				}
				cmd.Printf("sent %d of %d (%d failed)\n", res.Sent, res.Total, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&htmlPath, "html", "", "path to the HTML body")
	cmd.Flags().StringVar(&textPath, "text", "", "path to the plain-text body")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}

func weeklyDigestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly-digest",
		Short: "Compose and send this week's digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if a.digest == nil {
					return errNoDigest
				}
				res, err := a.digest.Run(ctx)
				switch {
				case errors.Is(err, newsletter.ErrAlreadySent):
					a.log.Info("Digest already sent this week")
					return nil
				case errors.Is(err, newsletter.ErrNoArticles):
					a.log.Info("No articles found this week")
					return nil
				case err != nil:
					return err
				}
				cmd.Printf("%q sent to %d subscribers\n", res.Subject, res.Sent)
				return nil
			})
		},
	}
}

func notifyCommand() *cobra.Command {
	var n push.Notification

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Push breaking stories, or broadcast a message with --title and --body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (n.Title == "") != (n.Body == "") {
				return errors.New("--title and --body must be given together")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if a.push == nil {
					return errNoPush
				}
				if n.Title != "" {
					res, err := a.push.Broadcast(ctx, n)
					if err != nil {
						return err
					}
					cmd.Printf("sent %d, removed %d, failed %d\n", res.Sent, res.Removed, res.Failed)
					return nil
				}
				if a.breaking == nil {
					return errNoRedis
				}
				sent, err := a.breaking.NotifyBreaking(ctx)
				if err != nil {
					return err
				}
				a.log.Info("Breaking sweep complete", logger.Int("announced", sent))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&n.Title, "title", "", "notification title")
	cmd.Flags().StringVar(&n.Body, "body", "", "notification body")
	cmd.Flags().StringVar(&n.URL, "url", "/", "page opened on click")
	return cmd
}
