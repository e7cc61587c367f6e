package models

import "time"

// ExecutionSummary records the counters of one pipeline run.
type ExecutionSummary struct {
	RunID            string    `json:"run_id" dynamodbav:"run_id"`
	ExecutedAt       time.Time `json:"executed_at" dynamodbav:"executed_at"`
	CollectedCount   int       `json:"collected_count" dynamodbav:"collected_count"`
	CandidateCount   int       `json:"candidate_count" dynamodbav:"candidate_count"`
	JudgedCount      int       `json:"judged_count" dynamodbav:"judged_count"`
	FailedCount      int       `json:"failed_count" dynamodbav:"failed_count"`
	CacheHitCount    int       `json:"cache_hit_count" dynamodbav:"cache_hit_count"`
	SelectedCount    int       `json:"selected_count" dynamodbav:"selected_count"`
	Published        bool      `json:"published" dynamodbav:"published"`
	DurationSeconds  float64   `json:"duration_seconds" dynamodbav:"duration_seconds"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd" dynamodbav:"estimated_cost_usd"`
}
