// Package telemetry wraps optional Sentry error reporting. With no DSN
// configured every operation is a no-op.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter forwards fatal errors to Sentry when configured.
type Reporter struct {
	enabled bool
}

// Init configures Sentry from the DSN. An empty DSN yields a disabled
// reporter and no error.
func Init(dsn, release string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize sentry: %w", err)
	}
	return &Reporter{enabled: true}, nil
}

// CaptureError reports err with the originating component tagged.
func (r *Reporter) CaptureError(err error, component string) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}

// Flush drains pending events before process exit.
func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(timeout)
}
