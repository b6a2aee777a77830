package batch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/retry"
)

// Delimiter joins texts of one batch into a single backend call.
const Delimiter = "\n<br>\n"

// Translator is the retrying single-text call the batcher sends joined text through.
type Translator interface {
	TranslateWithRetry(ctx context.Context, text string, s models.Settings) (string, error)
}

// Batcher joins text units into one backend call and splits the result back.
type Batcher struct {
	tr Translator

	// Sleep waits between document chunks. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Batcher over tr.
func New(tr Translator) *Batcher {
	return &Batcher{tr: tr, Sleep: sleepCtx}
}

// SubtitleChunkSize is the number of sentences sent per call for engine.
func SubtitleChunkSize(engine models.Engine) int {
	if engine == models.EngineGemini {
		return 50
	}
	return 10
}

// DocumentChunkSize is the number of paragraphs sent per call for engine.
func DocumentChunkSize(engine models.Engine) int {
	if engine == models.EngineGemini {
		return 100
	}
	return 10
}

// TranslateChunk translates texts in one call. Output order matches input
// order. When the call fails or the backend merges or drops segments, every
// input maps to the same failure string. Only configuration errors and
// cancellation are returned as errors.
func (b *Batcher) TranslateChunk(ctx context.Context, texts []string, s models.Settings) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	joined, err := b.tr.TranslateWithRetry(ctx, strings.Join(texts, Delimiter), s)
	if err != nil {
		return nil, err
	}

	if retry.IsErrorSentinel(joined) {
		return uniform(len(texts), joined), nil
	}

	parts := strings.Split(joined, Delimiter)
	if len(parts) != len(texts) {
		if s.Debug {
			log.Printf("[batch] alignment mismatch: sent %d, got %d", len(texts), len(parts))
		}
		failure := retry.Sentinel(fmt.Errorf("batch alignment mismatch: expected %d segments, got %d", len(texts), len(parts)))
		return uniform(len(texts), failure), nil
	}
	return parts, nil
}

// TranslateDocument translates a paragraph list in engine-sized chunks,
// waiting interval between chunks. Blank texts are returned unchanged and
// never sent.
func (b *Batcher) TranslateDocument(ctx context.Context, texts []string, s models.Settings, interval time.Duration) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)

	var idx []int
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			idx = append(idx, i)
		}
	}

	size := DocumentChunkSize(s.Engine)
	for start := 0; start < len(idx); start += size {
		if start > 0 && interval > 0 {
			if err := b.Sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
		end := min(start+size, len(idx))

		chunk := make([]string, 0, end-start)
		for _, i := range idx[start:end] {
			chunk = append(chunk, texts[i])
		}
		translated, err := b.TranslateChunk(ctx, chunk, s)
		if err != nil {
			return nil, err
		}
		for j, i := range idx[start:end] {
			out[i] = translated[j]
		}
	}
	return out, nil
}

func uniform(n int, s string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
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
