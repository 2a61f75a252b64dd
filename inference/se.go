package inference

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/linalg"
)

var tracer = otel.Tracer("github.com/katalvlaran/mmgsem/inference")

// ComputeSE derives standard errors for the coefficients of m.
//
// Errors: ErrSingularInformation when an information matrix cannot be
// inverted; context errors between phases.
//
// Complexity (full): O(n·G·K·J·q²) score evaluations plus O(n³) for the
// inversion, n = K·q + G·J + K − 1.
func ComputeSE(ctx context.Context, m *cluster.Model, opts Options) (*StandardErrors, error) {
	if m == nil || m.Input == nil {
		return nil, fmt.Errorf("inference: nil model: %w", cluster.ErrDimensionMismatch)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, span := tracer.Start(ctx, "inference.ComputeSE",
		trace.WithAttributes(
			attribute.Int("inference.k", m.K),
			attribute.Bool("inference.naive", opts.Naive),
		),
	)
	defer span.End()

	var (
		se  *StandardErrors
		err error
	)
	if opts.Naive {
		se, err = naiveSE(m)
	} else {
		se, err = fullSE(ctx, m, opts, logger)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	logger.Debug("standard errors computed", "k", m.K, "naive", se.Naive, "corrected", se.Corrected)

	return se, nil
}

func newSE(m *cluster.Model, cov *mat.SymDense) (*StandardErrors, error) {
	q := m.Input.NumCoefficients()
	se := &StandardErrors{
		K:     m.K,
		Names: m.Input.Model.CoefficientNames(),
		Cov:   cov,
	}
	for k, c := range m.Clusters {
		se.Coefficients = append(se.Coefficients, c.Params.Flatten())
		row := make([]float64, q)
		for i := range row {
			v := cov.At(k*q+i, k*q+i)
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("inference: variance %v for %s in cluster %d: %w", v, se.Names[i], k, ErrSingularInformation)
			}
			row[i] = math.Sqrt(v)
		}
		se.SE = append(se.SE, row)
	}

	return se, nil
}

// naiveSE inverts the per-cluster, per-equation complete-data information.
func naiveSE(m *cluster.Model) (*StandardErrors, error) {
	in := m.Input
	q := in.NumCoefficients()
	cov := mat.NewSymDense(m.K*q, nil)
	for k := 0; k < m.K; k++ {
		off := k * q
		for j, eq := range in.Equations {
			np := len(eq.Predictors)
			info := mat.NewSymDense(np, nil)
			for g, gr := range in.Groups {
				w := m.Posterior.At(g, k) * gr.N / m.Psi[g][j]
				for u, pu := range eq.Predictors {
					for v := u; v < np; v++ {
						info.SetSym(u, v, info.At(u, v)+w*gr.Phi.At(pu, eq.Predictors[v]))
					}
				}
			}
			inv, _, err := linalg.Inverse(info)
			if err != nil {
				return nil, fmt.Errorf("inference: cluster %d equation %d: %w: %w", k, j, ErrSingularInformation, err)
			}
			for u := 0; u < np; u++ {
				for v := u; v < np; v++ {
					cov.SetSym(off+u, off+v, inv.At(u, v))
				}
			}
			off += np
		}
	}
	se, err := newSE(m, cov)
	if err != nil {
		return nil, err
	}
	se.Naive = true

	return se, nil
}

// fullSE inverts the observed information and applies the two-step
// correction when possible.
func fullSE(ctx context.Context, m *cluster.Model, opts Options, logger *slog.Logger) (*StandardErrors, error) {
	l := newLayout(m)
	theta := l.pack(m)
	n := len(theta)

	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, l.score, theta, &fd.JacobianSettings{Formula: fd.Central, Step: opts.Step})
	negH, err := linalg.Symmetrize(jac)
	if err != nil {
		return nil, err
	}
	negH.ScaleSym(-1, negH)
	v2, _, err := linalg.Inverse(negH)
	if err != nil {
		return nil, fmt.Errorf("inference: observed information (%d parameters): %w: %w", n, ErrSingularInformation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := v2
	corrected := false
	if opts.TwoStep && m.Input.Step1 != nil {
		full, err = murphyTopel(ctx, l, theta, v2, opts)
		if err != nil {
			return nil, err
		}
		corrected = true
	} else if opts.TwoStep {
		logger.Warn("no step-1 fit attached; two-step correction skipped")
	}

	kq := m.K * l.q
	cov := mat.NewSymDense(kq, nil)
	for i := 0; i < kq; i++ {
		for j := i; j < kq; j++ {
			cov.SetSym(i, j, full.At(i, j))
		}
	}
	se, err := newSE(m, cov)
	if err != nil {
		return nil, err
	}
	se.Full = full
	se.Corrected = corrected

	return se, nil
}

// murphyTopel returns V2 + V2·(Σ_g C_g·V1_g·C_gᵀ)·V2.
func murphyTopel(ctx context.Context, l layout, theta []float64, v2 *mat.SymDense, opts Options) (*mat.SymDense, error) {
	step1 := l.in.Step1
	nf := l.in.Model.NumFactors()
	d := linalg.VechLen(nf)
	n := len(theta)
	params, pi, psi := l.unpack(theta)

	middle := mat.NewSymDense(n, nil)
	for g := range l.in.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		phiHat := linalg.Vech(l.in.Groups[g].Phi)

		// V1_g from the step-1 likelihood curvature in Φ_g
		h1 := mat.NewSymDense(d, nil)
		fd.Hessian(h1, func(v []float64) float64 {
			phi, err := linalg.Unvech(v, nf)
			if err != nil {
				return math.NaN()
			}
			ll, err := step1.GroupLogLik(g, phi)
			if err != nil {
				return math.NaN()
			}

			return ll
		}, phiHat, &fd.Settings{Formula: fd.Central, Step: hessianStep(opts.Step)})
		h1.ScaleSym(-1, h1)
		v1, _, err := linalg.Inverse(h1)
		if err != nil {
			return nil, fmt.Errorf("inference: step-1 information of group %s: %w: %w", l.in.Groups[g].ID, ErrSingularInformation, err)
		}

		// C_g = ∂score_g/∂vech(Φ_g)
		c := mat.NewDense(n, d, nil)
		fd.Jacobian(c, func(y, v []float64) {
			for i := range y {
				y[i] = 0
			}
			phi, err := linalg.Unvech(v, nf)
			if err != nil {
				for i := range y {
					y[i] = math.NaN()
				}

				return
			}
			l.groupScore(y, g, phi, params, pi, psi[g])
		}, phiHat, &fd.JacobianSettings{Formula: fd.Central, Step: opts.Step})

		var cv, cvc mat.Dense
		cv.Mul(c, v1)
		cvc.Mul(&cv, c.T())
		sym, err := linalg.Symmetrize(&cvc)
		if err != nil {
			return nil, err
		}
		middle.AddSym(middle, sym)
	}

	var tmp, corr mat.Dense
	tmp.Mul(v2, middle)
	corr.Mul(&tmp, v2)
	sym, err := linalg.Symmetrize(&corr)
	if err != nil {
		return nil, err
	}
	out := mat.NewSymDense(n, nil)
	out.AddSym(v2, sym)
	if err := linalg.ValidateFinite(out); err != nil {
		return nil, fmt.Errorf("inference: two-step covariance: %w: %w", ErrSingularInformation, err)
	}

	return out, nil
}

// hessianStep keeps a caller step, otherwise a step suited to second
// differences.
func hessianStep(step float64) float64 {
	if step > 0 {
		return step
	}

	return 1e-4
}
