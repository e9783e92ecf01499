// Package workflow implements the ASL-style state-machine interpreter
// (spec §4.5): the parser, JSONPath-subset path utilities, the choice
// evaluator, retry/catch policy execution, and both execution modes.
package workflow

import (
	"sync"
	"time"
)

// StateType discriminates a StateDef.
type StateType string

const (
	StateTask     StateType = "Task"
	StateChoice   StateType = "Choice"
	StateWait     StateType = "Wait"
	StateParallel StateType = "Parallel"
	StateMap      StateType = "Map"
	StatePass     StateType = "Pass"
	StateSucceed  StateType = "Succeed"
	StateFail     StateType = "Fail"
)

// RetryConfig is one retrier in a Task/Parallel/Map state's Retry list.
type RetryConfig struct {
	ErrorEquals  []string
	IntervalSecs float64
	MaxAttempts  int
	BackoffRate  float64

	attempt int // mutable per-execution counter
}

// CatchConfig is one catcher in a Task/Parallel/Map state's Catch list.
type CatchConfig struct {
	ErrorEquals []string
	Next        string
	ResultPath  string
}

// ChoiceRule is one rule of a Choice state.
type ChoiceRule struct {
	// Leaf form.
	Variable         string
	Operator         string // e.g. StringEquals, NumericGreaterThan, IsPresent, ...
	ComparisonValue  any
	BooleanValue     *bool // for IsPresent "value"

	// Combinators.
	And []ChoiceRule
	Or  []ChoiceRule
	Not *ChoiceRule

	Next string
}

// StateDef is one state in a StateMachine, a sum type over the eight
// state kinds (spec §3 "StateDef").
type StateDef struct {
	Type    StateType
	Comment string

	// Common transition fields.
	Next string
	End  bool

	// Path rewrites shared by Task/Pass/Parallel/Map.
	InputPath  *string
	OutputPath *string
	Parameters map[string]any
	ResultPath *string
	ResultSelector map[string]any

	// Task.
	Resource       string
	TimeoutSeconds float64
	Retry          []RetryConfig
	Catch          []CatchConfig

	// Choice.
	Choices []ChoiceRule
	Default string

	// Wait.
	Seconds      *float64
	Timestamp    *string
	SecondsPath  *string
	TimestampPath *string

	// Parallel.
	Branches []*StateMachine

	// Map.
	ItemsPath      string
	MaxConcurrency int
	Iterator       *StateMachine

	// Pass.
	Result any

	// Succeed/Fail.
	Error string
	Cause string
}

// StateMachine is a parsed workflow definition (spec §3).
type StateMachine struct {
	Comment string
	StartAt string
	States  map[string]*StateDef
}

// ExecutionStatus is the lifecycle state of an Execution.
type ExecutionStatus string

const (
	StatusRunning  ExecutionStatus = "running"
	StatusSucceeded ExecutionStatus = "succeeded"
	StatusFailed   ExecutionStatus = "failed"
	StatusTimedOut ExecutionStatus = "timed-out"
	StatusAborted  ExecutionStatus = "aborted"
)

// HistoryEvent is one entry of an Execution's history.
type HistoryEvent struct {
	Timestamp time.Time
	State     string
	Type      string // "StateEntered", "StateExited" or "Caught"
	Detail    string
}

// Execution is one run of a state machine (spec §3).
type Execution struct {
	ExecutionARN     string
	StateMachineName string
	StartTime        time.Time
	EndTime          *time.Time
	Status           ExecutionStatus
	Input            any
	Output           any
	Error            string
	Cause            string
	History          []HistoryEvent

	mu        sync.Mutex
	cancelled bool
}

// Cancel marks the execution for cooperative cancellation; the
// interpreter checks this between states (spec §5).
func (e *Execution) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
}

func (e *Execution) isCancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

func (e *Execution) appendHistory(ev HistoryEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.History = append(e.History, ev)
}
