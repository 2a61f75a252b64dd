// Package simulate draws multigroup data from a known mixture population.
// It replaces bundled example datasets: tests, examples and the CLI build the
// data they need explicitly, from a seed.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/syntax"
)

// Defaults used when a Population field is left nil.
const (
	DefaultLoading     = 0.8
	DefaultTheta       = 0.4
	DefaultResidualVar = 0.5
	defaultSeed        = 1
)

var (
	// ErrBadPopulation reports an inconsistent population description.
	ErrBadPopulation = errors.New("simulate: invalid population")

	// ErrBadDesign reports a non-positive design size.
	ErrBadDesign = errors.New("simulate: invalid design")
)

// Population describes the data-generating mixture model.
type Population struct {
	Model *syntax.Model

	// Loadings is p×m. Nil: markers 1, other loadings DefaultLoading.
	Loadings *mat.Dense

	// Theta holds the unique variances. Nil: DefaultTheta for all.
	Theta []float64

	// ExoCov is the covariance of the exogenous factors. Nil: identity.
	ExoCov *mat.SymDense

	// ResidualVar holds one disturbance variance per equation.
	// Nil: DefaultResidualVar for all.
	ResidualVar []float64

	// Coefficients holds one flattened coefficient vector per cluster, in
	// Model.CoefficientNames order.
	Coefficients [][]float64
}

// Design sets the number and size of the simulated groups.
type Design struct {
	GroupsPerCluster int
	GroupSize        int
	Seed             int64 // 0 uses a fixed default seed
}

// Dataset is the simulated sample.
type Dataset struct {
	Groups  []measurement.GroupData
	Rows    [][][]float64 // raw observations per group
	Cluster []int         // generating cluster per group
}

// Generate draws Design.GroupsPerCluster groups from every cluster of pop.
// Groups are ordered cluster by cluster; IDs are "g1", "g2", ...
func Generate(pop Population, d Design) (*Dataset, error) {
	ds := &Dataset{}
	err := pop.each(d, func(id string, k int, rows [][]float64) error {
		gd, err := measurement.NewGroupData(id, rows)
		if err != nil {
			return err
		}
		ds.Groups = append(ds.Groups, gd)
		ds.Rows = append(ds.Rows, rows)
		ds.Cluster = append(ds.Cluster, k)

		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

// FactorDataset holds sample factor covariances, skipping the indicators.
type FactorDataset struct {
	IDs     []string
	N       []int
	Phi     []*mat.SymDense // ML covariance of the drawn factor scores
	Cluster []int
}

// GenerateFactors draws the latent scores only and returns their sample
// covariances, as a step-1 fit with no measurement error would.
func GenerateFactors(pop Population, d Design) (*FactorDataset, error) {
	fd := &FactorDataset{}
	err := pop.each(d, func(id string, k int, rows [][]float64) error {
		_, cov, err := linalg.Moments(rows)
		if err != nil {
			return err
		}
		fd.IDs = append(fd.IDs, id)
		fd.N = append(fd.N, len(rows))
		fd.Phi = append(fd.Phi, cov)
		fd.Cluster = append(fd.Cluster, k)

		return nil
	}, true)
	if err != nil {
		return nil, err
	}

	return fd, nil
}

func (pop *Population) each(d Design, emit func(id string, k int, rows [][]float64) error, factorsOnly bool) error {
	if d.GroupsPerCluster < 1 || d.GroupSize < 2 {
		return ErrBadDesign
	}
	if err := pop.fill(); err != nil {
		return err
	}
	seed := d.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	exo := pop.Model.Exogenous()
	var chol mat.Cholesky
	if ok := chol.Factorize(pop.ExoCov); !ok {
		return fmt.Errorf("exogenous covariance not positive definite: %w", ErrBadPopulation)
	}
	var lower mat.TriDense
	chol.LTo(&lower)

	id := 0
	for k, coef := range pop.Coefficients {
		for r := 0; r < d.GroupsPerCluster; r++ {
			id++
			rows := make([][]float64, d.GroupSize)
			for i := range rows {
				if factorsOnly {
					rows[i] = pop.drawFactors(rng, &lower, exo, coef)
				} else {
					rows[i] = pop.draw(rng, &lower, exo, coef)
				}
			}
			if err := emit(fmt.Sprintf("g%d", id), k, rows); err != nil {
				return err
			}
		}
	}

	return nil
}

func (pop *Population) fill() error {
	m := pop.Model
	if m == nil {
		return fmt.Errorf("nil model: %w", ErrBadPopulation)
	}
	p, nf := m.NumIndicators(), m.NumFactors()
	if pop.Loadings == nil {
		pop.Loadings = mat.NewDense(p, nf, nil)
		for i := 0; i < p; i++ {
			for f := 0; f < nf; f++ {
				switch {
				case m.IsMarker(i, f):
					pop.Loadings.Set(i, f, 1)
				case m.Loads(i, f):
					pop.Loadings.Set(i, f, DefaultLoading)
				}
			}
		}
	}
	if r, c := pop.Loadings.Dims(); r != p || c != nf {
		return fmt.Errorf("loadings %dx%d: %w", r, c, ErrBadPopulation)
	}
	if pop.Theta == nil {
		pop.Theta = constant(p, DefaultTheta)
	}
	nx := len(m.Exogenous())
	if pop.ExoCov == nil {
		pop.ExoCov = mat.NewSymDense(nx, nil)
		for i := 0; i < nx; i++ {
			pop.ExoCov.SetSym(i, i, 1)
		}
	}
	if pop.ResidualVar == nil {
		pop.ResidualVar = constant(len(m.Equations()), DefaultResidualVar)
	}
	switch {
	case len(pop.Theta) != p:
		return fmt.Errorf("theta has %d entries: %w", len(pop.Theta), ErrBadPopulation)
	case pop.ExoCov.SymmetricDim() != nx:
		return fmt.Errorf("exogenous covariance is %d-dimensional: %w", pop.ExoCov.SymmetricDim(), ErrBadPopulation)
	case len(pop.ResidualVar) != len(m.Equations()):
		return fmt.Errorf("residual variances: %w", ErrBadPopulation)
	case len(pop.Coefficients) == 0:
		return fmt.Errorf("no clusters: %w", ErrBadPopulation)
	}
	for k, c := range pop.Coefficients {
		if len(c) != m.NumCoefficients() {
			return fmt.Errorf("cluster %d has %d coefficients, model needs %d: %w", k, len(c), m.NumCoefficients(), ErrBadPopulation)
		}
	}

	return nil
}

// drawFactors generates one latent vector η.
func (pop *Population) drawFactors(rng *rand.Rand, lower *mat.TriDense, exo []int, coef []float64) []float64 {
	m := pop.Model
	eta := make([]float64, m.NumFactors())

	z := make([]float64, len(exo))
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	for i, f := range exo {
		var v float64
		for j := 0; j <= i; j++ {
			v += lower.At(i, j) * z[j]
		}
		eta[f] = v
	}

	c := 0
	for j, eq := range m.Equations() {
		v := math.Sqrt(pop.ResidualVar[j]) * rng.NormFloat64()
		for _, pr := range eq.Predictors {
			v += coef[c] * eta[pr]
			c++
		}
		eta[eq.Outcome] = v
	}

	return eta
}

// draw generates one observation vector.
func (pop *Population) draw(rng *rand.Rand, lower *mat.TriDense, exo []int, coef []float64) []float64 {
	eta := pop.drawFactors(rng, lower, exo, coef)
	p := pop.Model.NumIndicators()
	x := make([]float64, p)
	for i := 0; i < p; i++ {
		v := math.Sqrt(pop.Theta[i]) * rng.NormFloat64()
		for f, e := range eta {
			v += pop.Loadings.At(i, f) * e
		}
		x[i] = v
	}

	return x
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}
