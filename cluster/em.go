package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/structural"
)

var tracer = otel.Tracer("github.com/katalvlaran/mmgsem/cluster")

// reinitStream offsets the streams used to refill empty clusters from the
// streams that draw the starting partitions.
const reinitStream = 1 << 30

// violationSlack is the relative objective drop tolerated as rounding.
const violationSlack = 1e-10

// Fit runs the mixture ECM for opts.Clusters clusters and returns the best
// start by log-likelihood.
//
// Errors:
//   - ErrInvalidK when K < 1 or K > G.
//   - ErrDimensionMismatch for an empty input or a bad user start.
//   - ErrDegenerateCluster when every start lost a cluster.
//   - ErrNonConvergence together with the best model when it hit
//     MaxIterations.
//
// All errors except context cancellation are *FitError values.
func Fit(ctx context.Context, in *Input, opts Options) (*Model, error) {
	k := opts.Clusters
	if in == nil || len(in.Groups) == 0 {
		return nil, fitErr(k, -1, -1, fmt.Errorf("empty input: %w", ErrDimensionMismatch))
	}
	if k < 1 || k > in.NumGroups() {
		return nil, fitErr(k, -1, -1, fmt.Errorf("need 1 ≤ K ≤ %d: %w", in.NumGroups(), ErrInvalidK))
	}
	opts.normalize()

	ctx, span := tracer.Start(ctx, "cluster.Fit",
		trace.WithAttributes(
			attribute.Int("cluster.k", k),
			attribute.Int("cluster.groups", in.NumGroups()),
			attribute.Int("cluster.starts", opts.Starts),
			attribute.String("cluster.init", opts.Init.String()),
		),
	)
	defer span.End()
	began := time.Now()

	starts, err := startingPoints(in, opts)
	if err != nil {
		err = fitErr(k, -1, -1, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	var (
		best    *Model
		bestErr error
		lastErr error
	)
	for s, z0 := range starts {
		m, err := runStart(ctx, in, opts, s, z0, startRNG(opts.Seed, reinitStream+s))
		if m == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.RecordError(ctxErr)
				span.SetStatus(codes.Error, "context canceled")

				return nil, ctxErr
			}
			opts.Logger.Warn("start failed", "k", k, "start", s, "error", err)
			lastErr = err

			continue
		}
		opts.Logger.Debug("start finished", "k", k, "start", s,
			"loglik", m.LogLik, "iterations", m.Iterations, "converged", m.Converged)
		if best == nil || m.LogLik > best.LogLik {
			best, bestErr = m, err
		}
	}
	if best == nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())

		return nil, lastErr
	}

	span.SetAttributes(
		attribute.Float64("cluster.loglik", best.LogLik),
		attribute.Int("cluster.iterations", best.Iterations),
		attribute.Bool("cluster.converged", best.Converged),
	)
	if bestErr != nil {
		span.SetStatus(codes.Error, bestErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	opts.Observer.OnFinish(k, best.Iterations, best.Converged, time.Since(began))
	opts.Logger.Info("mixture fit", "k", k, "loglik", best.LogLik, "start", best.Start,
		"iterations", best.Iterations, "converged", best.Converged, "violations", best.Violations)

	return best, bestErr
}

func startingPoints(in *Input, opts Options) ([]*mat.Dense, error) {
	g, k := in.NumGroups(), opts.Clusters
	switch opts.Init {
	case InitRandom:
		out := make([]*mat.Dense, opts.Starts)
		for s := range out {
			out[s] = oneHot(randomPartition(startRNG(opts.Seed, s), g, k), k)
		}

		return out, nil
	case InitHierarchical:
		x := make([][]float64, g)
		for i, gr := range in.Groups {
			x[i] = gr.Own.Flatten()
		}

		return []*mat.Dense{oneHot(wardPartition(x, k), k)}, nil
	case InitUser:
		z, err := userPosterior(opts, g, k)
		if err != nil {
			return nil, err
		}

		return []*mat.Dense{z}, nil
	}

	return nil, fmt.Errorf("init strategy %v: %w", opts.Init, ErrDimensionMismatch)
}

// runStart iterates one start to convergence. A nil model means the start
// failed; a non-nil model with an error means it did not converge.
func runStart(ctx context.Context, in *Input, opts Options, start int, z *mat.Dense, rng *rand.Rand) (*Model, error) {
	var (
		nG     = in.NumGroups()
		nK     = opts.Clusters
		nJ     = len(in.Equations)
		logger = opts.Logger.With("k", nK, "start", start)
		prev   = math.Inf(-1)
	)
	psi := make([][]float64, nG)
	resid := make([][][]float64, nG)
	for g, gr := range in.Groups {
		psi[g] = make([]float64, nJ)
		for j, v := range gr.OwnPsi {
			psi[g][j] = math.Max(v, opts.MinPsi)
		}
		resid[g] = make([][]float64, nK)
	}
	params := make([]structural.Params, nK)
	pi := make([]float64, nK)
	comp := make([]float64, nK)
	weighted := make([]structural.WeightedGroup, nG)

	m := &Model{K: nK, Seed: opts.Seed, Start: start, Input: in}
	var (
		iter      int
		converged bool
		ll        float64
	)
	for iter = 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mass := columnSums(z)
		for c := emptyCluster(mass, opts.MinClusterMass); c >= 0; c = emptyCluster(mass, opts.MinClusterMass) {
			if opts.EmptyCluster == Fail || m.Reinitializations >= opts.MaxReinitializations {
				return nil, fitErr(nK, c, iter, ErrDegenerateCluster)
			}
			g := rng.Intn(nG)
			for c2 := 0; c2 < nK; c2++ {
				z.Set(g, c2, 0)
			}
			z.Set(g, c, 1)
			m.Reinitializations++
			prev = math.Inf(-1)
			logger.Warn("empty cluster reinitialized", "cluster", c, "iteration", iter, "group", in.Groups[g].ID)
			opts.Observer.OnReinitialize(nK, c)
			mass = columnSums(z)
		}

		// CM-step B
		for c := 0; c < nK; c++ {
			for g, gr := range in.Groups {
				weighted[g] = structural.WeightedGroup{Phi: gr.Phi, N: gr.N, Weight: z.At(g, c), Psi: psi[g]}
			}
			p, err := structural.Estimate(in.Equations, weighted)
			if err != nil {
				if errors.Is(err, structural.ErrNoWeight) {
					err = fmt.Errorf("%w: %w", ErrDegenerateCluster, err)
				}

				return nil, fitErr(nK, c, iter, err)
			}
			params[c] = p
			for g, gr := range in.Groups {
				resid[g][c] = structural.Residuals(gr.Phi, in.Equations, p)
			}
		}
		// CM-step Ψ, π
		for g := 0; g < nG; g++ {
			for j := 0; j < nJ; j++ {
				var s float64
				for c := 0; c < nK; c++ {
					s += z.At(g, c) * resid[g][c][j]
				}
				psi[g][j] = math.Max(s, opts.MinPsi)
			}
		}
		for c := range pi {
			pi[c] = mass[c] / float64(nG)
		}

		// E-step
		ll = 0
		var obj float64
		for g, gr := range in.Groups {
			for c := 0; c < nK; c++ {
				comp[c] = math.Log(pi[c])
				for j := 0; j < nJ; j++ {
					comp[c] += structural.EquationLogLik(gr.N, psi[g][j], resid[g][c][j])
				}
			}
			lse := floats.LogSumExp(comp)
			ll += lse + gr.ExoLogLik
			if opts.Hard {
				top := floats.MaxIdx(comp)
				obj += comp[top] + gr.ExoLogLik
				for c := 0; c < nK; c++ {
					z.Set(g, c, 0)
				}
				z.Set(g, top, 1)

				continue
			}
			for c := 0; c < nK; c++ {
				z.Set(g, c, math.Exp(comp[c]-lse))
			}
		}
		if !opts.Hard {
			obj = ll
		}
		m.LogLikHistory = append(m.LogLikHistory, obj)
		opts.Observer.OnIteration(nK, start, iter, obj)

		if drop := prev - obj; drop > violationSlack*(1+math.Abs(prev)) {
			m.Violations++
			logger.Warn("objective decreased", "iteration", iter, "drop", drop)
			opts.Observer.OnViolation(nK, drop)
		}
		if !math.IsInf(prev, -1) && math.Abs(obj-prev) < opts.Tolerance {
			converged = true

			break
		}
		prev = obj
	}
	if iter > opts.MaxIterations {
		iter = opts.MaxIterations
	}

	mass := columnSums(z)
	m.Clusters = make([]Cluster, nK)
	for c := range m.Clusters {
		m.Clusters[c] = Cluster{Index: c, Params: params[c].Clone(), Weight: pi[c], Mass: mass[c]}
	}
	m.Posterior = z
	m.Psi = psi
	m.LogLik = ll
	m.Iterations = iter
	m.Converged = converged
	if !converged {
		logger.Warn("iteration limit reached", "iterations", iter, "loglik", ll)

		return m, fitErr(nK, -1, iter, ErrNonConvergence)
	}

	return m, nil
}

func columnSums(z *mat.Dense) []float64 {
	r, c := z.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j] += z.At(i, j)
		}
	}

	return out
}

func emptyCluster(mass []float64, floor float64) int {
	for c, v := range mass {
		if v < floor {
			return c
		}
	}

	return -1
}
