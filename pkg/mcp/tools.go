package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/duallang/duallang/pkg/models"
)

type translateArgs struct {
	Text  string `json:"text"`
	Lines bool   `json:"lines"`
}

type usageArgs struct {
	Engine string `json:"engine"`
}

type lookupArgs struct {
	Fragment string `json:"fragment"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"duallang_translate":       handleTranslate,
	"duallang_settings":        handleSettings,
	"duallang_cache_stats":     handleCacheStats,
	"duallang_usage":           handleUsage,
	"duallang_subtitle_status": handleSubtitleStatus,
	"duallang_lookup":          handleLookup,
}

var allTools = []ToolDefinition{
	{
		Name:        "duallang_translate",
		Description: "Translate text with the configured engine and target language.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"text"},
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Text to translate",
				},
				"lines": map[string]any{
					"type":        "boolean",
					"description": "Translate each line as a separate paragraph (optional)",
				},
			},
		},
	},
	{
		Name:        "duallang_settings",
		Description: "Show the active engine, target language and whether an API key is set.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "duallang_cache_stats",
		Description: "Show translation cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "duallang_usage",
		Description: "Show backend usage grouped by engine and target language.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"engine": map[string]any{
					"type":        "string",
					"description": "Filter by engine: google or gemini (optional)",
				},
			},
		},
	},
	{
		Name:        "duallang_subtitle_status",
		Description: "Show progress of the loaded subtitle track.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "duallang_lookup",
		Description: "Look up the sentence translation for a rendered caption fragment.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"fragment"},
			"properties": map[string]any{
				"fragment": map[string]any{
					"type":        "string",
					"description": "Caption text as displayed",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

func handleTranslate(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args translateArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if strings.TrimSpace(args.Text) == "" {
		return errorResult("text is required")
	}

	if args.Lines {
		out, err := s.translator.TranslateDocument(ctx, strings.Split(args.Text, "\n"))
		if err != nil {
			return errorResult("Error translating: " + err.Error())
		}
		return textResult(strings.Join(out, "\n"))
	}

	out, err := s.translator.TranslateText(ctx, args.Text)
	if err != nil {
		return errorResult("Error translating: " + err.Error())
	}
	return textResult(out)
}

func handleSettings(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatSettings(s.translator.Settings()))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatCacheStats(s.translator.CacheStats()))
}

func handleUsage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.tracker == nil {
		return textResult("Usage recording is not enabled.")
	}
	var args usageArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	rows, err := s.tracker.Summary(ctx, models.Engine(args.Engine))
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatSummary(rows))
}

func handleSubtitleStatus(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	status, err := s.translator.TrackStatus()
	if err != nil {
		return textResult("No subtitle track loaded.")
	}
	return textResult(formatTrackStatus(status))
}

func handleLookup(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args lookupArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Fragment == "" {
		return errorResult("fragment is required")
	}
	tr, ok := s.translator.LookupFragment(args.Fragment)
	if !ok {
		return textResult("No translation available yet.")
	}
	return textResult(tr)
}
