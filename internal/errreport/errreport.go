// Package errreport forwards internal failures to an error tracker.
package errreport

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter receives unexpected failures.
type Reporter interface {
	Capture(err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Nop discards reports.
type Nop struct{}

func (Nop) Capture(error, map[string]string) {}
func (Nop) Flush(time.Duration) bool         { return true }

// Sentry reports to a Sentry project.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a reporter with a dedicated client and hub.
func NewSentry(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("errreport: sentry client: %w", err)
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Capture sends err with tags attached to its scope only.
func (s *Sentry) Capture(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

// New picks Sentry when dsn is set and Nop otherwise.
func New(dsn, release, environment string) (Reporter, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return NewSentry(sentry.ClientOptions{
		Dsn:         dsn,
		Release:     release,
		Environment: environment,
	})
}
