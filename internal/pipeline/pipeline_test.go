package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/phishscan/internal/model"
)

type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, a *model.Analysis) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, a *model.Analysis) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, a)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if p := New(WithContinueOnError(true)); !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "fetch"})
	p.AddSteps(&mockStep{name: "extract"}, &mockStep{name: "classify"})

	want := []string{"fetch", "extract", "classify"}
	if got := p.StepNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("StepNames() = %v, want %v", got, want)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	t.Run("runs steps in order and records them", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.Analysis) error {
				order = append(order, name)
				return nil
			}}
		}
		p := New()
		p.AddSteps(record("a"), record("b"), record("c"))

		a := model.NewAnalysis("https://example.com")
		if err := p.Execute(context.Background(), a); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
			t.Errorf("order = %v", order)
		}
		if !reflect.DeepEqual(a.Steps, []string{"a", "b", "c"}) {
			t.Errorf("Steps = %v", a.Steps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", doFunc: func(context.Context, *model.Analysis) error { return errBoom }}
		after := &mockStep{name: "after"}
		p := New()
		p.AddSteps(failing, after)

		a := model.NewAnalysis("https://example.com")
		if err := p.Execute(context.Background(), a); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() error = %v, want %v", err, errBoom)
		}
		if after.callCount != 0 {
			t.Error("step after failure should not run")
		}
		if a.Error != "boom" {
			t.Errorf("Error = %q", a.Error)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", doFunc: func(context.Context, *model.Analysis) error { return errBoom }}
		after := &mockStep{name: "after"}
		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		a := model.NewAnalysis("https://example.com")
		if err := p.Execute(context.Background(), a); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() error = %v, want %v", err, errBoom)
		}
		if after.callCount != 1 {
			t.Error("step after failure should run")
		}
		if !reflect.DeepEqual(a.Steps, []string{"after"}) {
			t.Errorf("Steps = %v", a.Steps)
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		if err := p.Execute(ctx, model.NewAnalysis("https://example.com")); !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() error = %v, want context.Canceled", err)
		}
		if step.callCount != 0 {
			t.Error("step should not run after cancellation")
		}
	})
}

func TestPipelineAnalyze(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "touch", doFunc: func(_ context.Context, a *model.Analysis) error {
		a.Score = 0.25
		return nil
	}})

	a, err := p.Analyze(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if a.URL != "https://example.com/" || a.Score != 0.25 || a.AnalyzedAt.IsZero() {
		t.Errorf("Analyze() = %+v", a)
	}
}
