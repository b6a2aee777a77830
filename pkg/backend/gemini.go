package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/duallang/duallang/pkg/models"
)

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Gemini calls the generateContent endpoint with the API key from Settings.
type Gemini struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGemini creates a Gemini backend for model rooted at baseURL.
func NewGemini(baseURL, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: newHTTPClient(timeout),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent     `json:"contents"`
	GenerationConfig map[string]any      `json:"generationConfig"`
	SafetySettings   []map[string]string `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

func buildPrompt(text, lang string) string {
	return "Translate the following text to " + lang +
		". Maintain the original line breaks and structure. Do not add any extra explanations or text, only provide the direct translation.\n\n" +
		"Original Text:\n" + text + "\n\nTranslated Text:"
}

func (g *Gemini) Translate(ctx context.Context, text string, s models.Settings) (string, error) {
	if s.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	safety := make([]map[string]string, 0, len(safetyCategories))
	for _, c := range safetyCategories {
		safety = append(safety, map[string]string{"category": c, "threshold": "BLOCK_NONE"})
	}
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(text, s.TargetLanguage)}}}},
		GenerationConfig: map[string]any{
			"temperature": 0.2,
			"topP":        0.95,
			"topK":        40,
		},
		SafetySettings: safety,
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(s.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &TranslationError{Message: fmt.Sprintf("gemini request: %v", err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranslationError{Message: fmt.Sprintf("read gemini response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := parseGeminiError(resp.StatusCode, body)
		if s.Debug {
			log.Printf("[gemini] status %d (retry in %v): %s", resp.StatusCode, te.RetryDelay, te.Message)
		}
		return "", te
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &TranslationError{Message: fmt.Sprintf("parse gemini response: %v", err), Err: err}
	}

	if len(out.Candidates) == 0 {
		if reason := out.PromptFeedback.BlockReason; reason != "" {
			if s.Debug {
				log.Printf("[gemini] blocked: %s", reason)
			}
			return SoftFailurePrefix + " (blocked: " + reason + ")", nil
		}
		return SoftFailurePrefix + " (no content)", nil
	}

	parts := out.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return SoftFailurePrefix, nil
	}
	return parts[0].Text, nil
}

// parseGeminiError builds a TranslationError from a non-2xx body, attaching
// the RetryInfo delay when present.
func parseGeminiError(status int, body []byte) *TranslationError {
	te := &TranslationError{Message: fmt.Sprintf("Gemini API error: %d", status)}

	var eb geminiErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return te
	}
	if eb.Error.Message != "" {
		te.Message = eb.Error.Message
	}
	for _, d := range eb.Error.Details {
		if d.Type != retryInfoType {
			continue
		}
		if secs, ok := leadingSeconds(d.RetryDelay); ok {
			te.RetryDelay = time.Duration(secs) * time.Second
			break
		}
	}
	return te
}

// leadingSeconds parses the integer prefix of a duration string like "37s"
// or "12.5s", ignoring any fraction.
func leadingSeconds(s string) (int64, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
