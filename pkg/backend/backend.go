package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/duallang/duallang/pkg/models"
)

// Client is a remote translation backend.
type Client interface {
	Translate(ctx context.Context, text string, s models.Settings) (string, error)
}

// ErrConfig marks configuration errors. They are never retried.
var ErrConfig = errors.New("configuration error")

// ErrMissingAPIKey is returned by backends that need a key when none is set.
var ErrMissingAPIKey = fmt.Errorf("%w: API key is not configured", ErrConfig)

// SoftFailurePrefix starts every placeholder returned for a successful call
// that carried no usable content.
const SoftFailurePrefix = "translation failed"

// IsSoftFailure reports whether s is a soft-failure placeholder.
func IsSoftFailure(s string) bool {
	return strings.HasPrefix(s, SoftFailurePrefix)
}

// TranslationError is a failed backend call. RetryDelay is the minimum wait
// the backend asked for, zero when it gave none.
type TranslationError struct {
	Message    string
	RetryDelay time.Duration
	Err        error
}

func (e *TranslationError) Error() string {
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// RetryHint extracts a backend-supplied retry delay from err, if any.
func RetryHint(err error) (time.Duration, bool) {
	var te *TranslationError
	if errors.As(err, &te) && te.RetryDelay > 0 {
		return te.RetryDelay, true
	}
	return 0, false
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// CheckSettings reports configuration errors a call with s would hit.
func CheckSettings(s models.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if s.Engine == models.EngineGemini && s.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
