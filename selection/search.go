package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/mmgsem/cluster"
)

var tracer = otel.Tracer("github.com/katalvlaran/mmgsem/selection")

// Options configures Search.
type Options struct {
	// MinK and MaxK bound the inclusive range of cluster counts.
	MinK, MaxK int

	// Cluster is the per-fit template; Clusters is set per K. Every K uses
	// the same Seed.
	Cluster cluster.Options

	// Workers bounds concurrent fits; ≤0 means GOMAXPROCS.
	Workers int

	// TieBreak resolves equal criterion values in Best.
	TieBreak TieBreak

	Logger *slog.Logger
}

// DefaultOptions searches [minK, maxK] with cluster.DefaultOptions.
func DefaultOptions(minK, maxK int) Options {
	return Options{
		MinK:     minK,
		MaxK:     maxK,
		Cluster:  cluster.DefaultOptions(minK),
		TieBreak: Parsimonious,
	}
}

// Result holds one model per K in [MinK, MaxK] and the criteria table.
type Result struct {
	RunID    uuid.UUID
	Created  time.Time
	MinK     int
	MaxK     int
	TieBreak TieBreak

	// Models and Table are indexed by K−MinK.
	Models []*cluster.Model
	Table  []Row

	// HullK is the CHull choice, or 0 when the hull has too few points.
	HullK int
}

// Search fits every K of the range. Non-convergent fits are kept and
// flagged in the table; any other fit error aborts the search.
//
// Errors: cluster.ErrInvalidK when the range is empty, starts below 1 or
// exceeds the number of groups; errors of cluster.Fit otherwise.
func Search(ctx context.Context, in *cluster.Input, opts Options) (*Result, error) {
	if in == nil {
		return nil, fmt.Errorf("selection: nil input: %w", cluster.ErrDimensionMismatch)
	}
	if opts.MinK < 1 || opts.MaxK < opts.MinK || opts.MaxK > in.NumGroups() {
		return nil, fmt.Errorf("selection: range [%d,%d] with %d groups: %w",
			opts.MinK, opts.MaxK, in.NumGroups(), cluster.ErrInvalidK)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, span := tracer.Start(ctx, "selection.Search",
		trace.WithAttributes(
			attribute.Int("selection.min_k", opts.MinK),
			attribute.Int("selection.max_k", opts.MaxK),
			attribute.Int("selection.workers", workers),
		),
	)
	defer span.End()

	res := &Result{
		RunID:    uuid.New(),
		Created:  time.Now().UTC(),
		MinK:     opts.MinK,
		MaxK:     opts.MaxK,
		TieBreak: opts.TieBreak,
		Models:   make([]*cluster.Model, opts.MaxK-opts.MinK+1),
	}
	logger = logger.With("run", res.RunID.String())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := opts.MinK; k <= opts.MaxK; k++ {
		g.Go(func() error {
			co := opts.Cluster
			co.Clusters = k
			if co.Logger == nil {
				co.Logger = logger
			}
			m, err := cluster.Fit(gctx, in, co)
			if err != nil && !(m != nil && errors.Is(err, cluster.ErrNonConvergence)) {
				return err
			}
			if err != nil {
				logger.Warn("fit did not converge", "k", k, "iterations", m.Iterations)
			}
			res.Models[k-opts.MinK] = m

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	res.tabulate()
	span.SetAttributes(attribute.Int("selection.hull_k", res.HullK))
	span.SetStatus(codes.Ok, "")
	logger.Info("model selection finished", "min_k", res.MinK, "max_k", res.MaxK, "hull_k", res.HullK)

	return res, nil
}

// tabulate fills Table and the hull columns from Models.
func (r *Result) tabulate() {
	r.Table = make([]Row, len(r.Models))
	pts := make([]HullPoint, len(r.Models))
	for i, m := range r.Models {
		r.Table[i] = Criteria(m)
		pts[i] = HullPoint{Complexity: float64(r.Table[i].Params), Fit: r.Table[i].LogLik}
	}
	onHull, scree, sel := ConvexHull(pts, r.TieBreak)
	for i := range r.Table {
		r.Table[i].OnHull = onHull[i]
		r.Table[i].ScreeRatio = scree[i]
	}
	r.HullK = 0
	if sel >= 0 {
		r.HullK = r.Table[sel].K
	}
}

// Extract returns the model fitted for k.
func (r *Result) Extract(k int) (*cluster.Model, error) {
	if k < r.MinK || k > r.MaxK {
		return nil, fmt.Errorf("selection: K=%d outside searched range [%d,%d]: %w", k, r.MinK, r.MaxK, cluster.ErrInvalidK)
	}

	return r.Models[k-r.MinK], nil
}

// Row returns the criteria of k.
func (r *Result) Row(k int) (Row, error) {
	if k < r.MinK || k > r.MaxK {
		return Row{}, fmt.Errorf("selection: K=%d outside searched range [%d,%d]: %w", k, r.MinK, r.MaxK, cluster.ErrInvalidK)
	}

	return r.Table[k-r.MinK], nil
}

// Best returns the K preferred by c: the lowest information criterion, or
// the CHull choice.
func (r *Result) Best(c Criterion) (int, error) {
	if c == CHull {
		if r.HullK == 0 {
			return 0, ErrNoHullSelection
		}

		return r.HullK, nil
	}
	if c < 0 || c > ICL {
		return 0, fmt.Errorf("selection: unknown criterion %v", c)
	}
	best, bestVal := 0, math.Inf(1)
	for _, row := range r.Table {
		v := row.value(c)
		if v < bestVal || (v == bestVal && r.TieBreak == Complex) {
			best, bestVal = row.K, v
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("selection: no finite %v value", c)
	}

	return best, nil
}
