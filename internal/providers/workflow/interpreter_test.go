package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeInvoker resolves a Task's Resource to a pure function registered by
// name, so tests can exercise the interpreter without a real compute
// provider.
type fakeInvoker struct {
	mu    sync.Mutex
	calls map[string]int
	fns   map[string]func(input any, attempt int) (any, string, error)
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{calls: map[string]int{}, fns: map[string]func(input any, attempt int) (any, string, error){}}
}

func (f *fakeInvoker) register(resource string, fn func(input any, attempt int) (any, string, error)) {
	f.fns[resource] = fn
}

func (f *fakeInvoker) Invoke(ctx context.Context, resource string, input any, timeout time.Duration) (any, string, error) {
	f.mu.Lock()
	f.calls[resource]++
	attempt := f.calls[resource]
	f.mu.Unlock()

	fn, ok := f.fns[resource]
	if !ok {
		return nil, "States.TaskFailed", fmt.Errorf("no fake registered for %q", resource)
	}
	out, code, err := fn(input, attempt)
	return out, code, err
}

func mustParse(t *testing.T, doc string) *StateMachine {
	t.Helper()
	sm, err := Parse([]byte(doc))
	require.NoError(t, err)
	return sm
}

func TestEngine_SimpleTaskPassSucceed(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.register("double", func(input any, attempt int) (any, string, error) {
		n := input.(map[string]any)["n"].(float64)
		return map[string]any{"n": n * 2}, "", nil
	})

	sm := mustParse(t, `{
		"StartAt": "Double",
		"States": {
			"Double": {"Type": "Task", "Resource": "double", "Next": "Done"},
			"Done": {"Type": "Succeed"}
		}
	}`)

	e := NewEngine(invoker)
	e.RegisterStateMachine("doubler", sm)
	exec, err := e.StartExecution(context.Background(), "doubler", map[string]any{"n": 21.0}, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, exec.Status)
	require.Equal(t, map[string]any{"n": 42.0}, exec.Output)
}

func TestEngine_ChoiceRoutesOnVariable(t *testing.T) {
	sm := mustParse(t, `{
		"StartAt": "Decide",
		"States": {
			"Decide": {
				"Type": "Choice",
				"Choices": [{"Variable": "$.ok", "BooleanEquals": true, "Next": "Good"}],
				"Default": "Bad"
			},
			"Good": {"Type": "Pass", "Result": {"path": "good"}, "End": true},
			"Bad": {"Type": "Pass", "Result": {"path": "bad"}, "End": true}
		}
	}`)
	e := NewEngine(newFakeInvoker())
	e.RegisterStateMachine("router", sm)

	exec, err := e.StartExecution(context.Background(), "router", map[string]any{"ok": true}, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"path": "good"}, exec.Output)

	exec, err = e.StartExecution(context.Background(), "router", map[string]any{"ok": false}, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"path": "bad"}, exec.Output)
}

func TestEngine_RetryThenSucceed(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.register("flaky", func(input any, attempt int) (any, string, error) {
		if attempt < 3 {
			return nil, "States.TaskFailed", fmt.Errorf("attempt %d failed", attempt)
		}
		return "ok", "", nil
	})
	sm := mustParse(t, `{
		"StartAt": "Flaky",
		"States": {
			"Flaky": {
				"Type": "Task",
				"Resource": "flaky",
				"Retry": [{"ErrorEquals": ["States.ALL"], "MaxAttempts": 5, "IntervalSeconds": 0.01, "BackoffRate": 1.0}],
				"End": true
			}
		}
	}`)
	e := NewEngine(invoker)
	e.RegisterStateMachine("retrier", sm)
	exec, err := e.StartExecution(context.Background(), "retrier", nil, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, exec.Status)
	require.Equal(t, "ok", exec.Output)
	require.Equal(t, 3, invoker.calls["flaky"])
}

func TestEngine_RetryExhaustedFallsToCatch(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.register("alwaysFails", func(input any, attempt int) (any, string, error) {
		return nil, "States.TaskFailed", fmt.Errorf("nope")
	})
	sm := mustParse(t, `{
		"StartAt": "Try",
		"States": {
			"Try": {
				"Type": "Task",
				"Resource": "alwaysFails",
				"Retry": [{"ErrorEquals": ["States.TaskFailed"], "MaxAttempts": 1, "IntervalSeconds": 0.01}],
				"Catch": [{"ErrorEquals": ["States.TaskFailed"], "Next": "Recover"}]
			},
			"Recover": {"Type": "Pass", "End": true}
		}
	}`)
	e := NewEngine(invoker)
	e.RegisterStateMachine("catcher", sm)
	exec, err := e.StartExecution(context.Background(), "catcher", map[string]any{"x": 1.0}, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, exec.Status)
	out := exec.Output.(map[string]any)
	require.Equal(t, 1.0, out["x"])
	errObj := out["Error"].(map[string]any)
	require.Equal(t, "States.TaskFailed", errObj["Error"])
	require.Equal(t, 2, invoker.calls["alwaysFails"], "one initial attempt plus one retry")
}

func TestEngine_UncaughtFailureFailsExecution(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.register("boom", func(input any, attempt int) (any, string, error) {
		return nil, "States.TaskFailed", fmt.Errorf("boom")
	})
	sm := mustParse(t, `{
		"StartAt": "Boom",
		"States": {"Boom": {"Type": "Task", "Resource": "boom", "End": true}}
	}`)
	e := NewEngine(invoker)
	e.RegisterStateMachine("failer", sm)
	exec, err := e.StartExecution(context.Background(), "failer", nil, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, exec.Status)
	require.Equal(t, "States.TaskFailed", exec.Error)
}

func TestEngine_ParallelCollectsOrderedOutputs(t *testing.T) {
	sm := mustParse(t, `{
		"StartAt": "Fan",
		"States": {
			"Fan": {
				"Type": "Parallel",
				"Branches": [
					{"StartAt": "A", "States": {"A": {"Type": "Pass", "Result": "a", "End": true}}},
					{"StartAt": "B", "States": {"B": {"Type": "Pass", "Result": "b", "End": true}}}
				],
				"End": true
			}
		}
	}`)
	e := NewEngine(newFakeInvoker())
	e.RegisterStateMachine("parallel", sm)
	exec, err := e.StartExecution(context.Background(), "parallel", nil, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, exec.Status)
	require.Equal(t, []any{"a", "b"}, exec.Output)
}

func TestEngine_MapAppliesIteratorToEachItem(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.register("square", func(input any, attempt int) (any, string, error) {
		n := input.(float64)
		return n * n, "", nil
	})
	sm := mustParse(t, `{
		"StartAt": "Squares",
		"States": {
			"Squares": {
				"Type": "Map",
				"ItemsPath": "$.nums",
				"MaxConcurrency": 2,
				"Iterator": {"StartAt": "Sq", "States": {"Sq": {"Type": "Task", "Resource": "square", "End": true}}},
				"End": true
			}
		}
	}`)
	e := NewEngine(invoker)
	e.RegisterStateMachine("mapper", sm)
	exec, err := e.StartExecution(context.Background(), "mapper", map[string]any{"nums": []any{2.0, 3.0, 4.0}}, ModeExpress)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, exec.Status)
	require.Equal(t, []any{4.0, 9.0, 16.0}, exec.Output)
}

func TestEngine_AsyncExecutionIsQueryable(t *testing.T) {
	invoker := newFakeInvoker()
	started := make(chan struct{})
	invoker.register("slow", func(input any, attempt int) (any, string, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		return "done", "", nil
	})
	sm := mustParse(t, `{"StartAt": "Slow", "States": {"Slow": {"Type": "Task", "Resource": "slow", "End": true}}}`)
	e := NewEngine(invoker)
	e.RegisterStateMachine("async", sm)

	exec, err := e.StartExecution(context.Background(), "async", nil, ModeStandard)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, exec.Status)

	<-started
	require.Eventually(t, func() bool {
		got, err := e.DescribeExecution(exec.ExecutionARN)
		require.NoError(t, err)
		return got.Status == StatusSucceeded
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_StopExecutionCancelsBetweenStates(t *testing.T) {
	sm := mustParse(t, `{
		"StartAt": "Wait",
		"States": {
			"Wait": {"Type": "Wait", "Seconds": 0.05, "Next": "Next"},
			"Next": {"Type": "Pass", "End": true}
		}
	}`)
	e := NewEngine(newFakeInvoker())
	e.RegisterStateMachine("cancellable", sm)
	exec, err := e.StartExecution(context.Background(), "cancellable", nil, ModeStandard)
	require.NoError(t, err)

	require.NoError(t, e.StopExecution(exec.ExecutionARN))

	require.Eventually(t, func() bool {
		got, _ := e.DescribeExecution(exec.ExecutionARN)
		return got.Status == StatusFailed || got.Status == StatusAborted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngine_UnknownStateMachineIsNotFound(t *testing.T) {
	e := NewEngine(newFakeInvoker())
	_, err := e.StartExecution(context.Background(), "nope", nil, ModeExpress)
	require.Error(t, err)
}
