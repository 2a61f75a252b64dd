package selection

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/cluster"
)

// ModelSummary is the persisted form of one fitted model.
type ModelSummary struct {
	K                 int         `json:"k"`
	LogLik            float64     `json:"loglik"`
	Weights           []float64   `json:"weights"`
	Coefficients      [][]float64 `json:"coefficients"` // per cluster, flattened
	Posterior         [][]float64 `json:"posterior"`
	Psi               [][]float64 `json:"psi"`
	Iterations        int         `json:"iterations"`
	Converged         bool        `json:"converged"`
	Violations        int         `json:"violations"`
	Reinitializations int         `json:"reinitializations"`
	Seed              int64       `json:"seed"`
}

// Summary is a self-contained, JSON-friendly snapshot of a Result. All
// floats are finite: an infinite AICc is stored as math.MaxFloat64.
type Summary struct {
	RunID        string         `json:"run_id"`
	Created      time.Time      `json:"created"`
	MinK         int            `json:"min_k"`
	MaxK         int            `json:"max_k"`
	HullK        int            `json:"hull_k"`
	Groups       []string       `json:"groups"`
	Coefficients []string       `json:"coefficient_names"`
	Table        []Row          `json:"table"`
	Models       []ModelSummary `json:"models"`
}

// Summarize converts a model.
func Summarize(m *cluster.Model) ModelSummary {
	s := ModelSummary{
		K:                 m.K,
		LogLik:            m.LogLik,
		Weights:           m.Weights(),
		Iterations:        m.Iterations,
		Converged:         m.Converged,
		Violations:        m.Violations,
		Reinitializations: m.Reinitializations,
		Seed:              m.Seed,
	}
	for _, p := range m.Params() {
		s.Coefficients = append(s.Coefficients, p.Flatten())
	}
	r, _ := m.Posterior.Dims()
	for g := 0; g < r; g++ {
		s.Posterior = append(s.Posterior, mat.Row(nil, g, m.Posterior))
	}
	for _, psi := range m.Psi {
		s.Psi = append(s.Psi, append([]float64(nil), psi...))
	}

	return s
}

// Summary snapshots r.
func (r *Result) Summary() Summary {
	s := Summary{
		RunID:   r.RunID.String(),
		Created: r.Created,
		MinK:    r.MinK,
		MaxK:    r.MaxK,
		HullK:   r.HullK,
	}
	if len(r.Models) > 0 {
		in := r.Models[0].Input
		for _, g := range in.Groups {
			s.Groups = append(s.Groups, g.ID)
		}
		s.Coefficients = in.Model.CoefficientNames()
	}
	for _, row := range r.Table {
		row.AICc = finite(row.AICc)
		s.Table = append(s.Table, row)
	}
	for _, m := range r.Models {
		s.Models = append(s.Models, Summarize(m))
	}

	return s
}

// Model returns the stored summary for k.
func (s Summary) Model(k int) (ModelSummary, bool) {
	if k < s.MinK || k > s.MaxK || k-s.MinK >= len(s.Models) {
		return ModelSummary{}, false
	}

	return s.Models[k-s.MinK], true
}

func finite(x float64) float64 {
	switch {
	case math.IsInf(x, 1):
		return math.MaxFloat64
	case math.IsInf(x, -1):
		return -math.MaxFloat64
	}

	return x
}
