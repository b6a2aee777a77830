package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duallang/duallang/pkg/models"
)

// Google calls the unauthenticated translate_a endpoint.
type Google struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogle creates a Google backend rooted at baseURL.
func NewGoogle(baseURL string, timeout time.Duration) *Google {
	return &Google{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (g *Google) Translate(ctx context.Context, text string, s models.Settings) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", s.TargetLanguage)
	q.Set("dt", "t")
	q.Set("q", text)
	endpoint := g.baseURL + "/translate_a/single?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build google request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &TranslationError{Message: fmt.Sprintf("google request: %v", err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranslationError{Message: fmt.Sprintf("read google response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if s.Debug {
			log.Printf("[google] status %d: %s", resp.StatusCode, body)
		}
		return "", &TranslationError{Message: fmt.Sprintf("Google Translate API error: %d", resp.StatusCode)}
	}

	translated, err := parseGoogleResponse(body)
	if err != nil {
		return "", &TranslationError{Message: err.Error(), Err: err}
	}
	return translated, nil
}

// parseGoogleResponse concatenates the first string of every segment in the
// first element of the nested response array.
func parseGoogleResponse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("parse google response: %w", err)
	}
	if len(top) == 0 {
		return "", fmt.Errorf("parse google response: empty body")
	}

	var segments [][]any
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", fmt.Errorf("parse google segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if str, ok := seg[0].(string); ok {
			b.WriteString(str)
		}
	}
	return b.String(), nil
}
