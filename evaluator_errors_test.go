package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-models/pkg/task"
)

func TestEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := evaluationError("expr", "price * qty", "invoice.total", false, base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "price * qty" || evalErr.Attribute != "invoice.total" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if got := err.Error(); got != `models: invoice.total: expr run "price * qty": boom` {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestEvaluationErrorFillsExisting(t *testing.T) {
	existing := &EvaluationError{Engine: "custom", Err: errors.New("bad")}

	err := evaluationError("cel", "rule", "user.email", true, existing)
	if err != existing {
		t.Fatalf("expected the existing error to be returned")
	}
	if existing.Engine != "custom" || existing.Expr != "rule" || existing.Attribute != "user.email" {
		t.Fatalf("unexpected metadata %+v", existing)
	}
	if evaluationError("expr", "x", "y", false, nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestModelEvaluateReportsStage(t *testing.T) {
	loop := task.NewLoop()
	failing := WithCustomFunction("fail", func(...any) (any, error) { return nil, errors.New("refused") })
	m := MustDefine("calc", []Field{{Name: "n", Type: Number, Default: 2}}, WithLoop(loop), failing).MustNew(nil)
	settle(t, m)

	_, err := m.Evaluate("n +")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || !evalErr.Compile || evalErr.Attribute != "calc" {
		t.Fatalf("expected compile failure, got %v", err)
	}

	_, err = m.Evaluate("")
	if !errors.As(err, &evalErr) || !strings.Contains(err.Error(), "must not be empty") {
		t.Fatalf("expected empty expression failure, got %v", err)
	}

	_, err = m.Evaluate("n + fail()")
	if !errors.As(err, &evalErr) || evalErr.Compile || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("expected run failure, got %v", err)
	}
}
