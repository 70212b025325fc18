package expr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// DefaultScriptTimeout bounds a single script evaluation. Scripts are
// tenant-authored and must not be able to stall a worker.
const DefaultScriptTimeout = 250 * time.Millisecond

// ScriptEvaluator runs expressions in a sandboxed JavaScript engine.
//
// Each evaluation gets a fresh VM with only the context bound as globals:
// no filesystem, network, clock or process access is reachable. A hard
// wall-clock timeout interrupts runaway scripts.
type ScriptEvaluator struct {
	timeout time.Duration
}

// NewScriptEvaluator returns a script backend with the given timeout.
func NewScriptEvaluator(timeout time.Duration) *ScriptEvaluator {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	return &ScriptEvaluator{timeout: timeout}
}

var errInterrupted = fmt.Errorf("script interrupted")

// Evaluate implements Evaluator.
func (e *ScriptEvaluator) Evaluate(ctx context.Context, raw string, data map[string]interface{}) (interface{}, error) {
	vm := goja.New()
	for k, v := range data {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to bind %q: %w", k, err)
		}
	}

	timer := time.AfterFunc(e.timeout, func() {
		vm.Interrupt(errInterrupted)
	})
	defer timer.Stop()

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchDone:
		}
	}()

	value, err := vm.RunString(raw)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("script exceeded %v time limit", e.timeout)
		}
		return nil, fmt.Errorf("script failed: %w", err)
	}

	return value.Export(), nil
}
