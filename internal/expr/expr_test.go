package expr

import (
	"context"
	"strings"
	"testing"
	"time"
)

func testContext() map[string]interface{} {
	return map[string]interface{}{
		"name": "Ada",
		"customer": map[string]interface{}{
			"vip":  true,
			"city": "London",
		},
		"items": []interface{}{
			map[string]interface{}{"n": float64(1)},
			map[string]interface{}{"n": float64(2)},
		},
	}
}

func TestPathEvaluator_TopLevel(t *testing.T) {
	e := &PathEvaluator{}

	v, err := e.Evaluate(context.Background(), "name", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != "Ada" {
		t.Errorf("got %v, want Ada", v)
	}
}

func TestPathEvaluator_Nested(t *testing.T) {
	e := &PathEvaluator{}

	v, err := e.Evaluate(context.Background(), "customer.city", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != "London" {
		t.Errorf("got %v, want London", v)
	}
}

func TestPathEvaluator_ArrayIndex(t *testing.T) {
	e := &PathEvaluator{}

	v, err := e.Evaluate(context.Background(), "items.1.n", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != float64(2) {
		t.Errorf("got %v, want 2", v)
	}
}

func TestPathEvaluator_MissingPathIsNil(t *testing.T) {
	e := &PathEvaluator{}

	v, err := e.Evaluate(context.Background(), "customer.missing.deep", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want nil for missing path", v)
	}
}

func TestQueryEvaluator_Arithmetic(t *testing.T) {
	e := &QueryEvaluator{}

	v, err := e.Evaluate(context.Background(), "items[0].n + items[1].n", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != float64(3) {
		t.Errorf("got %v, want 3", v)
	}
}

func TestQueryEvaluator_Filter(t *testing.T) {
	e := &QueryEvaluator{}

	v, err := e.Evaluate(context.Background(), "filter(items, .n > 1)", testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 1 {
		t.Errorf("got %v, want one-element slice", v)
	}
}

func TestQueryEvaluator_BadExpression(t *testing.T) {
	e := &QueryEvaluator{}

	if _, err := e.Evaluate(context.Background(), "items[", testContext()); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestScriptEvaluator_Result(t *testing.T) {
	e := NewScriptEvaluator(time.Second)

	v, err := e.Evaluate(context.Background(), `name + " of " + customer.city`, testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != "Ada of London" {
		t.Errorf("got %v, want Ada of London", v)
	}
}

func TestScriptEvaluator_TimeoutInterruptsLoop(t *testing.T) {
	e := NewScriptEvaluator(30 * time.Millisecond)

	start := time.Now()
	_, err := e.Evaluate(context.Background(), "while (true) {}", testContext())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "time limit") {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("interrupt took too long: %v", elapsed)
	}
}

func TestScriptEvaluator_NoAmbientIO(t *testing.T) {
	e := NewScriptEvaluator(time.Second)

	// The VM must not expose host facilities like require or fetch.
	for _, script := range []string{"require('fs')", "fetch('http://example.com')"} {
		if _, err := e.Evaluate(context.Background(), script, testContext()); err == nil {
			t.Errorf("expected error for %q", script)
		}
	}
}

func TestDispatcher_RoutesByLanguage(t *testing.T) {
	d := NewDispatcher()
	ctx := context.Background()

	v, err := d.Evaluate(ctx, Expression{Raw: "name", Language: LangPath}, testContext())
	if err != nil {
		t.Fatalf("path dispatch failed: %v", err)
	}
	if v != "Ada" {
		t.Errorf("got %v, want Ada", v)
	}

	v, err = d.Evaluate(ctx, Expression{Raw: "1 + 2", Language: LangQuery}, testContext())
	if err != nil {
		t.Fatalf("query dispatch failed: %v", err)
	}
	if v != 3 {
		t.Errorf("got %v, want 3", v)
	}
}

func TestDispatcher_EmptyLanguageDefaultsToPath(t *testing.T) {
	d := NewDispatcher()

	v, err := d.Evaluate(context.Background(), Expression{Raw: "customer.city"}, testContext())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != "London" {
		t.Errorf("got %v, want London", v)
	}
}

func TestDispatcher_UnknownLanguage(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Evaluate(context.Background(), Expression{Raw: "x", Language: "cobol"}, testContext())
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if !strings.Contains(err.Error(), "unknown expression language") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTruthy(t *testing.T) {
	falsy := []interface{}{nil, false, "", float64(0), []interface{}{}, map[string]interface{}{}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("expected %#v to be falsy", v)
		}
	}

	truthy := []interface{}{true, "x", float64(1), []interface{}{1}, map[string]interface{}{"a": 1}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("expected %#v to be truthy", v)
		}
	}
}
