// Package compute implements the function-invocation provider (spec
// §4.9): resolving a function name or ARN to an invocable handler and
// delivering an event plus an invocation context, through a circuit
// breaker so a failing handler degrades instead of cascading.
package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"lwsgo/internal/apierrors"
	"lwsgo/pkg/logging"
)

// InvocationContext carries the metadata a handler receives alongside its
// event, per spec §4.9.
type InvocationContext struct {
	FunctionName string
	InvokedARN   string
	MemoryLimit  int
	Timeout      time.Duration
	RequestID    string
}

// Handler is an in-process function target. The execution substrate
// (in-process, child process, container) is opaque to the core; this
// module implements the in-process substrate.
type Handler func(ctx context.Context, event any, ictx InvocationContext) (any, error)

// Result is returned from Invoke.
type Result struct {
	Payload    any
	Err        string
	DurationMs int64
	RequestID  string
}

// Provider resolves function names/ARNs to registered handlers and
// invokes them with circuit-breaker protection per function.
type Provider struct {
	region    string
	accountID string

	mu       sync.RWMutex
	handlers map[string]Handler
	breakers map[string]*gobreaker.CircuitBreaker[any]
	limits   map[string]int
}

// New constructs a compute provider. region/accountID are used only to
// synthesize ARNs for resolution and display.
func New(region, accountID string) *Provider {
	return &Provider{
		region:    region,
		accountID: accountID,
		handlers:  make(map[string]Handler),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any]),
		limits:    make(map[string]int),
	}
}

// Register binds a function name to an in-process handler with the given
// memory limit (MB), used only to populate InvocationContext.MemoryLimit.
func (p *Provider) Register(name string, memoryLimitMB int, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = h
	p.limits[name] = memoryLimitMB
	p.breakers[name] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("compute", "function %s circuit breaker %s -> %s", name, from, to)
		},
	})
}

func (p *Provider) arn(name string) string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", p.region, p.accountID, name)
}

// resolve maps a name-or-ARN onto a registered function name.
func (p *Provider) resolve(nameOrARN string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.handlers[nameOrARN]; ok {
		return nameOrARN, true
	}
	for name := range p.handlers {
		if p.arn(name) == nameOrARN {
			return name, true
		}
	}
	return "", false
}

// Invoke resolves nameOrARN and delivers event to its handler, bounded by
// timeout, returning a structured Result per spec §4.9.
func (p *Provider) Invoke(ctx context.Context, nameOrARN string, event any, timeout time.Duration) (Result, error) {
	name, ok := p.resolve(nameOrARN)
	if !ok {
		return Result{}, apierrors.NewFunctionNotFoundError(nameOrARN)
	}

	p.mu.RLock()
	handler := p.handlers[name]
	breaker := p.breakers[name]
	memLimit := p.limits[name]
	p.mu.RUnlock()

	requestID := uuid.NewString()
	ictx := InvocationContext{
		FunctionName: name,
		InvokedARN:   p.arn(name),
		MemoryLimit:  memLimit,
		Timeout:      timeout,
		RequestID:    requestID,
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := breaker.Execute(func() (any, error) {
		return handler(callCtx, event, ictx)
	})
	duration := time.Since(start)

	result := Result{DurationMs: duration.Milliseconds(), RequestID: requestID}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Err = "States.Timeout"
		} else if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result.Err = "States.TaskFailed: circuit breaker open for " + name
		} else {
			result.Err = err.Error()
		}
		logging.Warn("compute", "invoke %s failed after %s: %v", name, duration, err)
		return result, apierrors.NewDependentFailureError("States.TaskFailed", "compute handler error", err)
	}
	result.Payload = payload
	return result, nil
}
