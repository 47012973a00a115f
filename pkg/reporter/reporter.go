package reporter

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter forwards errors to an external error tracker. Reporting is a side
// channel: it never fails and never changes what the caller returns.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Config holds error tracking settings.
type Config struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

// New initialises Sentry. An empty DSN yields a reporter that drops everything.
func New(cfg Config) (Reporter, error) {
	if cfg.DSN == "" {
		return Nop{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return Nop{}, err
	}
	return &sentryReporter{}, nil
}

type sentryReporter struct{}

func (r *sentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func (r *sentryReporter) Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Nop discards all reports.
type Nop struct{}

func (Nop) Report(context.Context, error, map[string]string) {}

func (Nop) Flush(time.Duration) bool { return true }
