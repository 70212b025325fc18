package expr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// PathEvaluator resolves dotted property paths (e.g. "customer.address.city",
// "items.0.price") against the context. A path that resolves to nothing
// yields nil rather than an error; submitted data is caller-shaped and
// missing fields are an expected case.
type PathEvaluator struct{}

// Evaluate implements Evaluator.
func (e *PathEvaluator) Evaluate(_ context.Context, raw string, data map[string]interface{}) (interface{}, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty path")
	}

	doc, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("context not serializable: %w", err)
	}

	result := gjson.GetBytes(doc, raw)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}
