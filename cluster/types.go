package cluster

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors.
var (
	// ErrInvalidK reports K < 1 or K larger than the number of groups.
	ErrInvalidK = errors.New("cluster: invalid number of clusters")

	// ErrNonConvergence reports that MaxIterations was reached first.
	// The model is still returned with Converged=false.
	ErrNonConvergence = errors.New("cluster: iteration limit reached before convergence")

	// ErrDegenerateCluster reports a cluster whose posterior mass vanished
	// and could not be recovered under the configured policy.
	ErrDegenerateCluster = errors.New("cluster: degenerate cluster")

	// ErrDimensionMismatch reports input that does not fit the model
	// (wrong partition length, malformed posterior, missing equations).
	ErrDimensionMismatch = errors.New("cluster: dimension mismatch")
)

// FitError attaches the failing K, cluster and iteration to a sentinel.
// Cluster and Iteration are -1 when not applicable.
type FitError struct {
	K         int
	Cluster   int
	Iteration int
	Err       error
}

func (e *FitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "K=%d", e.K)
	if e.Cluster >= 0 {
		fmt.Fprintf(&b, " cluster=%d", e.Cluster)
	}
	if e.Iteration >= 0 {
		fmt.Fprintf(&b, " iteration=%d", e.Iteration)
	}

	return b.String() + ": " + e.Err.Error()
}

func (e *FitError) Unwrap() error { return e.Err }

func fitErr(k, cluster, iter int, err error) error {
	return &FitError{K: k, Cluster: cluster, Iteration: iter, Err: err}
}

// InitStrategy selects how starting partitions are built.
type InitStrategy int

const (
	// InitRandom draws Options.Starts random partitions and keeps the best fit.
	InitRandom InitStrategy = iota
	// InitHierarchical cuts a Ward tree built on per-group regression estimates.
	InitHierarchical
	// InitUser starts from Options.Partition or Options.Posterior.
	InitUser
)

var initNames = map[InitStrategy]string{
	InitRandom:       "random",
	InitHierarchical: "hierarchical",
	InitUser:         "user",
}

func (s InitStrategy) String() string {
	if n, ok := initNames[s]; ok {
		return n
	}

	return fmt.Sprintf("InitStrategy(%d)", int(s))
}

// ParseInitStrategy maps "random", "hierarchical" or "user" to a strategy.
func ParseInitStrategy(s string) (InitStrategy, error) {
	for k, v := range initNames {
		if strings.EqualFold(s, v) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("cluster: unknown init strategy %q", s)
}

// EmptyClusterPolicy decides what happens when a cluster loses all mass.
type EmptyClusterPolicy int

const (
	// Reinitialize moves a randomly chosen group into the empty cluster.
	Reinitialize EmptyClusterPolicy = iota
	// Fail stops the start with ErrDegenerateCluster.
	Fail
)

func (p EmptyClusterPolicy) String() string {
	switch p {
	case Reinitialize:
		return "reinitialize"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("EmptyClusterPolicy(%d)", int(p))
	}
}

// ParseEmptyClusterPolicy maps "reinitialize" or "fail" to a policy.
func ParseEmptyClusterPolicy(s string) (EmptyClusterPolicy, error) {
	switch strings.ToLower(s) {
	case "reinitialize", "":
		return Reinitialize, nil
	case "fail":
		return Fail, nil
	}

	return 0, fmt.Errorf("cluster: unknown empty-cluster policy %q", s)
}

// Options configures Fit.
type Options struct {
	// Clusters is K. Must satisfy 1 ≤ K ≤ number of groups.
	Clusters int

	// Seed drives every random choice. 0 selects a fixed default stream.
	Seed int64

	// Starts is the number of random restarts (InitRandom only).
	Starts int

	Init InitStrategy

	// Partition (length G, labels in [0,K)) or Posterior (G×K, rows summing
	// to one) seeds InitUser. Partition wins when both are set.
	Partition []int
	Posterior *mat.Dense

	MaxIterations int

	// Tolerance ends the loop once the objective improves by less than it.
	Tolerance float64

	// Hard switches to classification EM.
	Hard bool

	EmptyCluster EmptyClusterPolicy

	// MinClusterMass is the posterior mass below which a cluster is empty.
	MinClusterMass float64

	// MaxReinitializations bounds recoveries per start.
	MaxReinitializations int

	// MinPsi floors every disturbance variance.
	MinPsi float64

	// Logger receives progress and warnings; nil discards.
	Logger *slog.Logger

	// Observer receives per-iteration events; nil ignores them.
	Observer Observer
}

// DefaultOptions returns the documented defaults for K clusters.
func DefaultOptions(k int) Options {
	return Options{
		Clusters:             k,
		Seed:                 1,
		Starts:               25,
		Init:                 InitRandom,
		MaxIterations:        1000,
		Tolerance:            1e-6,
		EmptyCluster:         Reinitialize,
		MinClusterMass:       1e-6,
		MaxReinitializations: 10,
		MinPsi:               1e-8,
	}
}

func (o *Options) normalize() {
	if o.Starts < 1 || o.Init != InitRandom {
		o.Starts = 1
	}
	if o.MaxIterations < 1 {
		o.MaxIterations = 1
	}
	if o.MinPsi <= 0 {
		o.MinPsi = 1e-8
	}
	if o.MinClusterMass <= 0 {
		o.MinClusterMass = 1e-6
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
}
