package mmgsem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/inference"
	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/selection"
	"github.com/katalvlaran/mmgsem/syntax"
)

// Options bundles the settings of every stage.
type Options struct {
	Measurement measurement.Options
	Selection   selection.Options
	Inference   inference.Options
	Tests       inference.TestOptions

	// Logger, when set, replaces the loggers of the stage options.
	Logger *slog.Logger
}

// DefaultOptions searches K in [minK, maxK] with the package defaults.
func DefaultOptions(minK, maxK int) Options {
	return Options{
		Measurement: measurement.DefaultOptions(),
		Selection:   selection.DefaultOptions(minK, maxK),
		Inference:   inference.DefaultOptions(),
		Tests:       inference.TestOptions{MultipleComparison: true, Correction: inference.Bonferroni},
	}
}

func (o *Options) propagate() {
	if o.Logger == nil {
		return
	}
	o.Measurement.Logger = o.Logger
	o.Selection.Logger = o.Logger
	o.Selection.Cluster.Logger = o.Logger
	o.Inference.Logger = o.Logger
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Model     *syntax.Model
	Step1     *measurement.Fit
	Input     *cluster.Input
	Selection *selection.Result

	opts Options
}

// Analyze parses the model, fits the measurement model and searches the K
// range of opts.Selection.
//
// Non-convergence of either step does not abort: the Analysis is returned
// with an error wrapping ErrNonConvergence (and, for step 1, also
// measurement.ErrNonConvergence). Group data that does not fit the
// measurement model is ErrDimensionMismatch.
func Analyze(ctx context.Context, s1, s2 string, groups []measurement.GroupData, opts Options) (*Analysis, error) {
	opts.propagate()
	model, err := syntax.Parse(s1, s2)
	if err != nil {
		return nil, err
	}

	var warn error
	fit, err := measurement.Estimate(ctx, model, groups, opts.Measurement)
	switch {
	case errors.Is(err, measurement.ErrNonConvergence):
		warn = fmt.Errorf("mmgsem: step 1: %w: %w", ErrNonConvergence, err)
	case errors.Is(err, measurement.ErrDimensionMismatch):
		return nil, fmt.Errorf("mmgsem: step 1: %w: %w", ErrDimensionMismatch, err)
	case err != nil:
		return nil, fmt.Errorf("mmgsem: step 1: %w", err)
	}

	in, err := cluster.NewInput(fit)
	if err != nil {
		return nil, fmt.Errorf("mmgsem: step 2 input: %w", err)
	}
	res, err := selection.Search(ctx, in, opts.Selection)
	if err != nil {
		return nil, fmt.Errorf("mmgsem: step 2: %w", err)
	}
	a := &Analysis{Model: model, Step1: fit, Input: in, Selection: res, opts: opts}
	for _, m := range res.Models {
		if !m.Converged {
			warn = errors.Join(warn, fmt.Errorf("mmgsem: K=%d: %w", m.K, ErrNonConvergence))
		}
	}

	return a, warn
}

// Fit returns the model with k clusters.
func (a *Analysis) Fit(k int) (*cluster.Model, error) {
	return a.Selection.Extract(k)
}

// Infer computes standard errors and, for k ≥ 2, Wald tests of the model
// with k clusters. tests is nil for k = 1.
func (a *Analysis) Infer(ctx context.Context, k int) (*inference.StandardErrors, *inference.TestResult, error) {
	m, err := a.Selection.Extract(k)
	if err != nil {
		return nil, nil, err
	}
	se, err := inference.ComputeSE(ctx, m, a.opts.Inference)
	if err != nil {
		return nil, nil, err
	}
	if k < 2 {
		return se, nil, nil
	}
	tests, err := inference.Test(m, se, a.opts.Tests)
	if err != nil {
		return se, nil, err
	}

	return se, tests, nil
}
