package selection

import (
	"fmt"
	"math"
	"strings"

	"github.com/katalvlaran/mmgsem/cluster"
)

// Criterion names a selection rule.
type Criterion int

const (
	BIC Criterion = iota
	BICG
	AIC
	AIC3
	AICc
	ICL
	CHull
)

var criterionNames = []string{"BIC", "BIC_G", "AIC", "AIC3", "AICc", "ICL", "CHull"}

func (c Criterion) String() string {
	if c >= 0 && int(c) < len(criterionNames) {
		return criterionNames[c]
	}

	return fmt.Sprintf("Criterion(%d)", int(c))
}

// ParseCriterion is case-insensitive; "bicg" is accepted for BIC_G.
func ParseCriterion(s string) (Criterion, error) {
	norm := strings.ReplaceAll(strings.ToLower(s), "_", "")
	for i, n := range criterionNames {
		if norm == strings.ReplaceAll(strings.ToLower(n), "_", "") {
			return Criterion(i), nil
		}
	}

	return 0, fmt.Errorf("selection: unknown criterion %q", s)
}

// TieBreak resolves equal criterion values.
type TieBreak int

const (
	// Parsimonious prefers the smaller K.
	Parsimonious TieBreak = iota
	// Complex prefers the larger K.
	Complex
)

// ParseTieBreak maps "parsimonious" or "complex".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(s) {
	case "parsimonious", "":
		return Parsimonious, nil
	case "complex":
		return Complex, nil
	}

	return 0, fmt.Errorf("selection: unknown tie-break %q", s)
}

// Row holds the fit criteria of one K.
type Row struct {
	K          int     `json:"k"`
	LogLik     float64 `json:"loglik"`
	Params     int     `json:"params"`
	N          float64 `json:"n"`
	Groups     int     `json:"groups"`
	BIC        float64 `json:"bic"`
	BICG       float64 `json:"bic_g"`
	AIC        float64 `json:"aic"`
	AIC3       float64 `json:"aic3"`
	AICc       float64 `json:"aicc"`
	Entropy    float64 `json:"entropy"`
	R2Entropy  float64 `json:"r2_entropy"`
	ICL        float64 `json:"icl"`
	OnHull     bool    `json:"on_hull"`
	ScreeRatio float64 `json:"scree_ratio"` // 0 unless an interior hull point
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

// Criteria computes every per-model criterion of m. Hull fields are filled
// by Result construction.
func Criteria(m *cluster.Model) Row {
	ll := m.LogLik
	p := float64(m.ParamCount())
	n := m.Input.TotalN()
	g := float64(m.NumGroups())
	en := m.Entropy()

	r := Row{
		K:          m.K,
		LogLik:     ll,
		Params:     m.ParamCount(),
		N:          n,
		Groups:     m.NumGroups(),
		BIC:        -2*ll + p*math.Log(n),
		BICG:       -2*ll + p*math.Log(g),
		AIC:        -2*ll + 2*p,
		AIC3:       -2*ll + 3*p,
		Entropy:    en,
		R2Entropy:  m.RelativeEntropy(),
		Converged:  m.Converged,
		Iterations: m.Iterations,
	}
	r.AICc = r.AIC + aiccPenalty(p, n)
	r.ICL = r.BIC + 2*en

	return r
}

func aiccPenalty(p, n float64) float64 {
	if n-p-1 <= 0 {
		return math.Inf(1)
	}

	return 2 * p * (p + 1) / (n - p - 1)
}

func (r Row) value(c Criterion) float64 {
	switch c {
	case BIC:
		return r.BIC
	case BICG:
		return r.BICG
	case AIC:
		return r.AIC
	case AIC3:
		return r.AIC3
	case AICc:
		return r.AICc
	case ICL:
		return r.ICL
	}

	return math.NaN()
}
