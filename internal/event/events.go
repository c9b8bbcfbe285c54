// Package event defines the typed run event stream the engine emits.
// Observers consume an ordered sequence of these instead of registering
// callbacks, which keeps diagnostics decoupled from the execution pipeline.
package event

import (
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/risk"
)

// Type discriminates run events.
type Type uint16

const (
	EvRunStarted Type = iota + 1
	EvSliceStarted
	EvSliceExecuted
	EvSliceFailed
	EvRiskAlert
	EvRunHalted
	EvRunResumed
	EvRunFinished
)

func (t Type) String() string {
	switch t {
	case EvRunStarted:
		return "RUN_STARTED"
	case EvSliceStarted:
		return "SLICE_STARTED"
	case EvSliceExecuted:
		return "SLICE_EXECUTED"
	case EvSliceFailed:
		return "SLICE_FAILED"
	case EvRiskAlert:
		return "RISK_ALERT"
	case EvRunHalted:
		return "RUN_HALTED"
	case EvRunResumed:
		return "RUN_RESUMED"
	case EvRunFinished:
		return "RUN_FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface all run events implement.
type Event interface {
	GetSeq() uint64
	GetTs() time.Time
	GetType() Type
}

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64   { return e.Seq }
func (e BaseEvent) GetTs() time.Time { return e.Ts }

// Stamp assigns the sequence number and timestamp at emission time.
func (e *BaseEvent) Stamp(seq uint64, ts time.Time) {
	e.Seq = seq
	e.Ts = ts
}

// RunStartedEvent marks the transition from pending to running.
type RunStartedEvent struct {
	BaseEvent
	Config domain.RunConfig `json:"config"`
}

func (e RunStartedEvent) GetType() Type { return EvRunStarted }

// SliceStartedEvent marks the start of one slice's admission pipeline.
type SliceStartedEvent struct {
	BaseEvent
	Index    int     `json:"index"`
	BaseSize float64 `json:"base_size"`
}

func (e SliceStartedEvent) GetType() Type { return EvSliceStarted }

// SliceExecutedEvent carries the result of a successfully submitted slice.
type SliceExecutedEvent struct {
	BaseEvent
	Result domain.SliceResult `json:"result"`
}

func (e SliceExecutedEvent) GetType() Type { return EvSliceExecuted }

// SliceFailedEvent carries the result of a failed slice. The run continues.
type SliceFailedEvent struct {
	BaseEvent
	Result domain.SliceResult `json:"result"`
}

func (e SliceFailedEvent) GetType() Type { return EvSliceFailed }

// RiskAlertEvent carries the alerts fired by one limit check.
type RiskAlertEvent struct {
	BaseEvent
	Alerts []risk.Alert `json:"alerts"`
	Halted bool         `json:"halted"`
}

func (e RiskAlertEvent) GetType() Type { return EvRiskAlert }

// RunHaltedEvent marks the risk-driven halt of the run loop.
type RunHaltedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (e RunHaltedEvent) GetType() Type { return EvRunHalted }

// RunResumedEvent marks an explicit resume after a halt.
type RunResumedEvent struct {
	BaseEvent
}

func (e RunResumedEvent) GetType() Type { return EvRunResumed }

// RunFinishedEvent closes the stream with the terminal summary.
type RunFinishedEvent struct {
	BaseEvent
	Summary domain.RunSummary `json:"summary"`
}

func (e RunFinishedEvent) GetType() Type { return EvRunFinished }
