package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lwsgo/internal/apierrors"
)

// TaskInvoker dispatches a Task state's Resource to whatever backs it
// (normally a compute.Provider). errorCode is a States.* style taxonomy
// code used for Retry/Catch matching; it is set whenever err != nil.
type TaskInvoker interface {
	Invoke(ctx context.Context, resource string, input any, timeout time.Duration) (output any, errorCode string, err error)
}

// stateError is an internal control-flow error carrying the taxonomy
// code a Catch/Retry matches against.
type stateError struct {
	Code  string
	Cause string
}

func (e *stateError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Cause) }

// ExecutionMode selects synchronous (express) or asynchronous (standard)
// execution (spec §4.5.4).
type ExecutionMode string

const (
	ModeExpress  ExecutionMode = "express"
	ModeStandard ExecutionMode = "standard"
)

// maxWaitDuration caps a Wait state so a bad Timestamp never blocks an
// execution indefinitely (spec §4.5.4).
const maxWaitDuration = 24 * time.Hour

// Engine runs registered state machines and tracks their executions.
type Engine struct {
	invoker TaskInvoker

	mu         sync.RWMutex
	machines   map[string]*StateMachine
	executions map[string]*Execution
}

func NewEngine(invoker TaskInvoker) *Engine {
	return &Engine{
		invoker:    invoker,
		machines:   make(map[string]*StateMachine),
		executions: make(map[string]*Execution),
	}
}

// SetInvoker replaces the engine's task invoker. It exists so a caller can
// construct the engine before its compute collaborator is available and
// wire the two together afterwards (the orchestrator's post-wire pass).
func (e *Engine) SetInvoker(invoker TaskInvoker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoker = invoker
}

func (e *Engine) RegisterStateMachine(name string, sm *StateMachine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.machines[name] = sm
}

func (e *Engine) stateMachine(name string) (*StateMachine, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sm, ok := e.machines[name]
	if !ok {
		return nil, apierrors.NewStateMachineNotFoundError(name)
	}
	return sm, nil
}

// StartExecution starts a run of stateMachineName. In ModeExpress it
// blocks until the machine finishes and returns the completed Execution.
// In ModeStandard it returns immediately with a running Execution,
// queryable via DescribeExecution.
func (e *Engine) StartExecution(ctx context.Context, stateMachineName string, input any, mode ExecutionMode) (*Execution, error) {
	sm, err := e.stateMachine(stateMachineName)
	if err != nil {
		return nil, err
	}
	exec := &Execution{
		ExecutionARN:     fmt.Sprintf("arn:aws:states:local:000000000000:execution:%s:%s", stateMachineName, uuid.NewString()),
		StateMachineName: stateMachineName,
		StartTime:        time.Now().UTC(),
		Status:           StatusRunning,
		Input:            input,
	}
	e.mu.Lock()
	e.executions[exec.ExecutionARN] = exec
	e.mu.Unlock()

	run := func(runCtx context.Context) {
		output, runErr := e.run(runCtx, sm, exec, input)
		e.finish(exec, output, runErr)
	}

	if mode == ModeExpress {
		run(ctx)
		return exec, nil
	}

	go run(context.Background())
	return exec, nil
}

func (e *Engine) DescribeExecution(arn string) (*Execution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exec, ok := e.executions[arn]
	if !ok {
		return nil, apierrors.NewExecutionNotFoundError(arn)
	}
	return exec, nil
}

// StopExecution requests cooperative cancellation (spec §5); the
// interpreter observes it between states.
func (e *Engine) StopExecution(arn string) error {
	exec, err := e.DescribeExecution(arn)
	if err != nil {
		return err
	}
	exec.Cancel()
	return nil
}

func (e *Engine) finish(exec *Execution, output any, err error) {
	now := time.Now().UTC()
	exec.mu.Lock()
	exec.EndTime = &now
	if err != nil {
		if se, ok := err.(*stateError); ok && se.Code == "States.Cancelled" {
			exec.Status = StatusAborted
			exec.Error = se.Code
			exec.Cause = se.Cause
		} else if se, ok := err.(*stateError); ok {
			exec.Status = StatusFailed
			exec.Error = se.Code
			exec.Cause = se.Cause
		} else {
			exec.Status = StatusFailed
			exec.Error = "States.Internal"
			exec.Cause = err.Error()
		}
	} else {
		exec.Status = StatusSucceeded
		exec.Output = output
	}
	exec.mu.Unlock()
}

// run executes sm starting at sm.StartAt, threading data through each
// state per spec §4.5.4.
func (e *Engine) run(ctx context.Context, sm *StateMachine, exec *Execution, data any) (any, error) {
	current := sm.StartAt
	for {
		if exec.isCancelled() {
			return nil, &stateError{Code: "States.Cancelled", Cause: "execution was stopped"}
		}
		def, ok := sm.States[current]
		if !ok {
			return nil, &stateError{Code: "States.Internal", Cause: fmt.Sprintf("no such state %q", current)}
		}
		exec.appendHistory(HistoryEvent{Timestamp: time.Now().UTC(), State: current, Type: "StateEntered"})

		effectiveInput, err := ApplyInputPath(def.InputPath, data)
		if err != nil {
			return nil, &stateError{Code: "States.Runtime", Cause: err.Error()}
		}
		if def.Parameters != nil {
			effectiveInput, err = ApplyParameters(def.Parameters, effectiveInput)
			if err != nil {
				return nil, &stateError{Code: "States.Runtime", Cause: err.Error()}
			}
		}

		result, next, done, succeeded, execErr := e.executeState(ctx, sm, exec, current, def, effectiveInput)
		if execErr != nil {
			if se, ok := execErr.(*stateError); ok {
				if catcher := selectCatcher(def.Catch, se.Code); catcher != nil {
					merged, mergeErr := ApplyResultPath(ptr(catcher.ResultPath), effectiveInput, map[string]any{"Error": se.Code, "Cause": se.Cause})
					if mergeErr != nil {
						return nil, &stateError{Code: "States.Runtime", Cause: mergeErr.Error()}
					}
					exec.appendHistory(HistoryEvent{Timestamp: time.Now().UTC(), State: current, Type: "Caught", Detail: se.Code})
					data = merged
					current = catcher.Next
					continue
				}
			}
			return nil, execErr
		}

		effectiveResult, err := ApplyResultPath(def.ResultPath, effectiveInput, result)
		if err != nil {
			return nil, &stateError{Code: "States.Runtime", Cause: err.Error()}
		}
		if def.ResultSelector != nil {
			effectiveResult, err = ApplyParameters(def.ResultSelector, effectiveResult)
			if err != nil {
				return nil, &stateError{Code: "States.Runtime", Cause: err.Error()}
			}
		}
		output, err := ApplyOutputPath(def.OutputPath, effectiveResult)
		if err != nil {
			return nil, &stateError{Code: "States.Runtime", Cause: err.Error()}
		}
		exec.appendHistory(HistoryEvent{Timestamp: time.Now().UTC(), State: current, Type: "StateExited"})

		if done {
			if succeeded {
				return output, nil
			}
			return nil, &stateError{Code: def.Error, Cause: def.Cause}
		}
		data = output
		if def.End {
			return output, nil
		}
		current = next
		if current == "" {
			current = def.Next
		}
	}
}

// executeState runs one state's own work (no path rewriting, no
// Retry/Catch beyond Task/Parallel/Map, which wrap themselves). It
// returns (result, explicitNext, done, succeeded, err). explicitNext is
// only meaningful for Choice; other types use def.Next/def.End.
func (e *Engine) executeState(ctx context.Context, sm *StateMachine, exec *Execution, name string, def *StateDef, input any) (any, string, bool, bool, error) {
	switch def.Type {
	case StateTask:
		out, err := e.executeWithPolicy(ctx, def, input)
		return out, "", false, false, err

	case StateChoice:
		next, err := EvaluateChoices(def, input)
		if err != nil {
			return nil, "", false, false, &stateError{Code: "States.NoChoiceMatched", Cause: err.Error()}
		}
		return input, next, false, false, nil

	case StateWait:
		d, err := waitDuration(def, input)
		if err != nil {
			return nil, "", false, false, &stateError{Code: "States.Runtime", Cause: err.Error()}
		}
		if d > maxWaitDuration {
			d = maxWaitDuration
		}
		if d < 0 {
			d = 0
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, "", false, false, &stateError{Code: "States.Timeout", Cause: ctx.Err().Error()}
		}
		return input, "", false, false, nil

	case StateParallel:
		out, err := e.executeWithPolicy(ctx, def, input)
		return out, "", false, false, err

	case StateMap:
		out, err := e.executeWithPolicy(ctx, def, input)
		return out, "", false, false, err

	case StatePass:
		if def.Result != nil {
			return def.Result, "", false, false, nil
		}
		return input, "", false, false, nil

	case StateSucceed:
		return input, "", true, true, nil

	case StateFail:
		return nil, "", true, false, nil

	default:
		return nil, "", false, false, &stateError{Code: "States.Internal", Cause: fmt.Sprintf("unknown state type %q", def.Type)}
	}
}

// executeWithPolicy runs the underlying Task/Parallel/Map work, applying
// def.Retry on failure (spec §4.5.5).
func (e *Engine) executeWithPolicy(ctx context.Context, def *StateDef, input any) (any, error) {
	retries := make([]RetryConfig, len(def.Retry))
	copy(retries, def.Retry)

	for {
		out, code, err := e.executeWork(ctx, def, input)
		if err == nil {
			return out, nil
		}
		if retrier := selectRetrier(retries, code); retrier != nil {
			wait, ok := nextDelay(retrier)
			if ok {
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return nil, &stateError{Code: "States.Timeout", Cause: ctx.Err().Error()}
				}
			}
		}
		return nil, &stateError{Code: code, Cause: err.Error()}
	}
}

func (e *Engine) executeWork(ctx context.Context, def *StateDef, input any) (any, string, error) {
	switch def.Type {
	case StateTask:
		timeout := time.Duration(def.TimeoutSeconds) * time.Second
		out, code, err := e.invoker.Invoke(ctx, def.Resource, input, timeout)
		if err != nil {
			if code == "" {
				code = "States.TaskFailed"
			}
			return nil, code, err
		}
		return out, "", nil

	case StateParallel:
		return e.executeParallel(ctx, def, input)

	case StateMap:
		return e.executeMap(ctx, def, input)

	default:
		return nil, "States.Internal", fmt.Errorf("executeWork called for non-task state %q", def.Type)
	}
}

func (e *Engine) executeParallel(ctx context.Context, def *StateDef, input any) (any, string, error) {
	results := make([]any, len(def.Branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range def.Branches {
		i, branch := i, branch
		g.Go(func() error {
			exec := &Execution{Status: StatusRunning, StartTime: time.Now().UTC()}
			out, err := e.run(gctx, branch, exec, input)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "States.BranchFailed", err
	}
	return results, "", nil
}

func (e *Engine) executeMap(ctx context.Context, def *StateDef, input any) (any, string, error) {
	items, err := Get(def.ItemsPath, input)
	if err != nil {
		return nil, "States.Runtime", err
	}
	arr, ok := items.([]any)
	if !ok {
		return nil, "States.Runtime", fmt.Errorf("ItemsPath %q did not resolve to an array", def.ItemsPath)
	}

	concurrency := int64(def.MaxConcurrency)
	if concurrency <= 0 {
		concurrency = int64(len(arr))
		if concurrency == 0 {
			concurrency = 1
		}
	}
	sem := semaphore.NewWeighted(concurrency)
	results := make([]any, len(arr))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range arr {
		i, item := i, item
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			exec := &Execution{Status: StatusRunning, StartTime: time.Now().UTC()}
			out, err := e.run(gctx, def.Iterator, exec, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if se, ok := err.(*stateError); ok {
			return nil, se.Code, se
		}
		return nil, "States.TaskFailed", err
	}
	return results, "", nil
}

func waitDuration(def *StateDef, input any) (time.Duration, error) {
	switch {
	case def.Seconds != nil:
		return time.Duration(*def.Seconds * float64(time.Second)), nil
	case def.Timestamp != nil:
		t, err := time.Parse(time.RFC3339, *def.Timestamp)
		if err != nil {
			return 0, err
		}
		return time.Until(t), nil
	case def.SecondsPath != nil:
		v, err := Get(*def.SecondsPath, input)
		if err != nil {
			return 0, err
		}
		secs, ok := asFloat(v)
		if !ok {
			return 0, fmt.Errorf("SecondsPath %q did not resolve to a number", *def.SecondsPath)
		}
		return time.Duration(secs * float64(time.Second)), nil
	case def.TimestampPath != nil:
		v, err := Get(*def.TimestampPath, input)
		if err != nil {
			return 0, err
		}
		t, ok := asTime(v)
		if !ok {
			return 0, fmt.Errorf("TimestampPath %q did not resolve to a timestamp", *def.TimestampPath)
		}
		return time.Until(t), nil
	default:
		return 0, fmt.Errorf("Wait state has no Seconds/Timestamp/SecondsPath/TimestampPath")
	}
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
