package models

import "time"

// Outcome classifies the result of a single backend call.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeSoft  Outcome = "soft_failure"
	OutcomeError Outcome = "error"
)

// UsageRecord tracks one backend call.
type UsageRecord struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Engine         Engine    `json:"engine"`
	TargetLanguage string    `json:"target_language"`
	Characters     int       `json:"characters"`
	Outcome        Outcome   `json:"outcome"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// UsageSummary aggregates usage across calls.
type UsageSummary struct {
	Engine         Engine `json:"engine"`
	TargetLanguage string `json:"target_language"`
	RequestCount   int    `json:"request_count"`
	Failures       int    `json:"failures"`
	SoftFailures   int    `json:"soft_failures"`
	TotalChars     int64  `json:"total_chars"`
	AvgLatencyMs   int64  `json:"avg_latency_ms"`
}
