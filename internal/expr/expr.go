// Package expr evaluates typed data expressions against a JSON-like context.
//
// Several interchangeable backends live behind one Evaluator contract. All
// backends must be deterministic given the same expression and context,
// side-effect-free, and bounded in execution time.
package expr

import (
	"context"
	"fmt"
)

// Expression is a raw expression string tagged with the language that
// should evaluate it.
type Expression struct {
	Raw      string `json:"raw"`
	Language string `json:"language"`
}

// Known expression languages.
const (
	LangPath   = "path"   // pure property-path lookup
	LangQuery  = "query"  // JSON query language with operators and functions
	LangScript = "script" // sandboxed script engine
)

// Evaluator evaluates one expression language.
type Evaluator interface {
	Evaluate(ctx context.Context, raw string, data map[string]interface{}) (interface{}, error)
}

// Dispatcher routes an Expression to the backend registered for its language.
type Dispatcher struct {
	backends map[string]Evaluator
}

// NewDispatcher returns a dispatcher with all stock backends registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{backends: map[string]Evaluator{}}
	d.Register(LangPath, &PathEvaluator{})
	d.Register(LangQuery, &QueryEvaluator{})
	d.Register(LangScript, NewScriptEvaluator(DefaultScriptTimeout))
	return d
}

// Register installs a backend for a language, replacing any previous one.
func (d *Dispatcher) Register(language string, e Evaluator) {
	d.backends[language] = e
}

// Evaluate dispatches to the backend selected by expr.Language.
// An empty language defaults to the path backend.
func (d *Dispatcher) Evaluate(ctx context.Context, e Expression, data map[string]interface{}) (interface{}, error) {
	lang := e.Language
	if lang == "" {
		lang = LangPath
	}
	backend, ok := d.backends[lang]
	if !ok {
		return nil, fmt.Errorf("unknown expression language %q", lang)
	}

	value, err := backend.Evaluate(ctx, e.Raw, data)
	if err != nil {
		return nil, fmt.Errorf("%s expression %q: %w", lang, e.Raw, err)
	}
	return value, nil
}

// Truthy reports whether a JSON value counts as true for conditionals.
// false, null, 0, "", empty arrays and empty objects are falsy.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	default:
		return true
	}
}
