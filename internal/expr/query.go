package expr

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
)

// QueryEvaluator evaluates expressions in a JSON query language with
// operators, comparisons and collection functions (filter, map, ...).
// The engine exposes no I/O; the context map is the whole environment.
type QueryEvaluator struct{}

// Evaluate implements Evaluator.
func (e *QueryEvaluator) Evaluate(_ context.Context, raw string, data map[string]interface{}) (interface{}, error) {
	program, err := expr.Compile(raw, expr.Env(data), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	out, err := expr.Run(program, data)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return out, nil
}
