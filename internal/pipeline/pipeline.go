package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/phishscan/internal/model"
)

// Step is one stage of the pipeline.
type Step interface {
	// Do runs the step against a. A non-nil error is a step failure; a page
	// that simply cannot be classified is recorded in a and returns nil.
	Do(ctx context.Context, a *model.Analysis) error

	// Name identifies the step in logs and in Analysis.Steps.
	Name() string
}

// Pipeline executes steps in the order they were added.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError makes the pipeline run the remaining steps after a
// step fails. The first failure is still recorded in Analysis.Error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against a. Cancellation is checked between steps;
// a step that is already running is expected to honor ctx itself.
func (p *Pipeline) Execute(ctx context.Context, a *model.Analysis) error {
	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "url", a.URL, "reason", err)
			if a.Error == "" {
				a.Error = err.Error()
			}
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", a.URL)

		if err := step.Do(ctx, a); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "url", a.URL, "error", err)
			if firstErr == nil {
				firstErr = err
				a.Error = err.Error()
			}
			if !p.continueOnError {
				return err
			}
			continue
		}
		a.Steps = append(a.Steps, step.Name())
	}
	return firstErr
}

// Analyze creates a fresh Analysis for url and executes the pipeline on it.
// The analysis is returned even when a step fails.
func (p *Pipeline) Analyze(ctx context.Context, url string) (*model.Analysis, error) {
	a := model.NewAnalysis(url)
	err := p.Execute(ctx, a)
	return a, err
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
