package retry

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/models"
)

// ErrorPrefix starts every sentinel string returned in place of a translation
// once retries are exhausted.
const ErrorPrefix = "translation error: "

// IsErrorSentinel reports whether s is a failure report rather than a translation.
func IsErrorSentinel(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}

// Sentinel formats err as an inline failure report.
func Sentinel(err error) string {
	return ErrorPrefix + err.Error()
}

// Controller wraps a backend call with bounded retry and backoff.
type Controller struct {
	client    backend.Client
	retries   int
	baseDelay time.Duration

	// Sleep waits d or until ctx is done. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Controller that retries up to retries times starting from baseDelay.
func New(client backend.Client, retries int, baseDelay time.Duration) *Controller {
	return &Controller{
		client:    client,
		retries:   retries,
		baseDelay: baseDelay,
		Sleep:     sleepCtx,
	}
}

// TranslateWithRetry translates text, retrying failed calls. The wait before a
// retry is the backend's hint when it sent one, otherwise the current base
// delay, which doubles only after unhinted waits. Exhausted retries yield a
// sentinel string and a nil error. Configuration errors and context
// cancellation are returned as errors without retrying.
func (c *Controller) TranslateWithRetry(ctx context.Context, text string, s models.Settings) (string, error) {
	delay := c.baseDelay
	for attempt := 0; ; attempt++ {
		out, err := c.client.Translate(ctx, text, s)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, backend.ErrConfig) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if attempt >= c.retries {
			if s.Debug {
				log.Printf("[retry] giving up after %d attempts: %v", attempt+1, err)
			}
			return Sentinel(err), nil
		}

		wait := delay
		hint, hinted := backend.RetryHint(err)
		if hinted {
			wait = hint
		}
		if s.Debug {
			log.Printf("[retry] attempt %d failed: %v; retrying in %v", attempt+1, err, wait)
		}
		if err := c.Sleep(ctx, wait); err != nil {
			return "", err
		}
		if !hinted {
			delay *= 2
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
