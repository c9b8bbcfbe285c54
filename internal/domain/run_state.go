package domain

import (
	"time"
)

// RunStatus is the lifecycle state of one execution run.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusCancelled RunStatus = "CANCELLED"
	StatusFailed    RunStatus = "FAILED"
)

// Terminal reports whether the run has ended.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// SliceResult records one slice attempt. Created once, appended to the
// ordered execution log, never mutated afterwards.
type SliceResult struct {
	Index             int       `json:"index"`
	RequestedSize     float64   `json:"requested_size"`
	ExecutedSize      float64   `json:"executed_size"`
	Price             float64   `json:"price"`
	Ts                time.Time `json:"ts"`
	AppliedMultiplier float64   `json:"applied_multiplier"`
	SlippagePct       float64   `json:"slippage_pct"`
	Success           bool      `json:"success"`
	OrderID           string    `json:"order_id,omitempty"`
	ErrorReason       string    `json:"error_reason,omitempty"`
}

// RunState is the externally visible state of a run. Owned exclusively by the
// execution engine; observers receive copies.
type RunState struct {
	Status            RunStatus `json:"status"`
	CurrentSliceIndex int       `json:"current_slice_index"`
	ExecutedQuantity  float64   `json:"executed_quantity"`
	SuccessCount      int       `json:"success_count"`
	FailureCount      int       `json:"failure_count"`
	// AchievedVWAP is the volume-weighted average of successful fill prices.
	AchievedVWAP   float64   `json:"achieved_vwap"`
	Halted         bool      `json:"halted"`
	StartedAt      time.Time `json:"started_at"`
	EstimatedEndAt time.Time `json:"estimated_end_at"`
}

// SlippageStats summarizes slippage across successful slices.
type SlippageStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// RunSummary is produced once, when a run reaches a terminal status.
type RunSummary struct {
	Status           RunStatus     `json:"status"`
	TotalSlices      int           `json:"total_slices"`
	SuccessCount     int           `json:"success_count"`
	FailureCount     int           `json:"failure_count"`
	ExecutedQuantity float64       `json:"executed_quantity"`
	AchievedVWAP     float64       `json:"achieved_vwap"`
	Duration         time.Duration `json:"duration"`
	Slippage         SlippageStats `json:"slippage"`
}
