package subtitle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/duallang/duallang/pkg/models"
)

// ErrEmptyTrack is returned for caption documents without events.
var ErrEmptyTrack = errors.New("caption track has no events")

// Decode reads a json3 caption document.
func Decode(r io.Reader) (*models.CaptionDocument, error) {
	var doc models.CaptionDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode captions: %w", err)
	}
	if len(doc.Events) == 0 {
		return nil, ErrEmptyTrack
	}
	return &doc, nil
}

// Fetch downloads and decodes a caption document from url.
func Fetch(ctx context.Context, client *http.Client, url string) (*models.CaptionDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch captions: HTTP error status %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}
