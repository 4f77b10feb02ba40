package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting when dsn is set. It reports whether Sentry is active.
func InitSentry(dsn, environment, serviceName string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		ServerName:  serviceName,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CaptureError forwards an unexpected error to Sentry if it is configured.
func CaptureError(err error) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.CaptureException(err)
}

// FlushSentry waits for buffered events before exit.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
