package syntax

import "fmt"

// Model is the validated, index-resolved pair of specifications.
// It is immutable after Parse; accessors return copies.
type Model struct {
	loadings    []Loading
	regressions []Regression // topological order of outcomes

	factors      []string
	factorIdx    map[string]int
	indicators   []string
	indicatorIdx map[string]int

	pattern    [][]bool // [indicator][factor]
	markers    []int    // marker indicator per factor
	equations  []Equation
	exogenous  []int
	endogenous []int
}

// Parse parses and validates the measurement (s1) and structural (s2)
// specifications. All failures unwrap to ErrInvalidModelSyntax.
func Parse(s1, s2 string) (*Model, error) {
	loadings, err := parseMeasurement(s1)
	if err != nil {
		return nil, err
	}
	regs, err := parseStructural(s2)
	if err != nil {
		return nil, err
	}

	return compile(loadings, regs)
}

// MustParse is Parse that panics on error. Intended for tests and examples
// with literal specifications.
func MustParse(s1, s2 string) *Model {
	m, err := Parse(s1, s2)
	if err != nil {
		panic(err)
	}

	return m
}

func compile(loadings []Loading, regs []Regression) (*Model, error) {
	m := &Model{
		loadings:     loadings,
		factorIdx:    make(map[string]int, len(loadings)),
		indicatorIdx: make(map[string]int),
	}
	for f, l := range loadings {
		m.factorIdx[l.Factor] = f
		m.factors = append(m.factors, l.Factor)
	}
	for _, l := range loadings {
		if _, clash := m.factorIdx[l.Indicators[0]]; clash {
			return nil, &SyntaxError{Section: Measurement, Reason: fmt.Sprintf("indicator %s is also a factor name", l.Indicators[0])}
		}
		for _, ind := range l.Indicators {
			if _, clash := m.factorIdx[ind]; clash {
				return nil, &SyntaxError{Section: Measurement, Reason: fmt.Sprintf("indicator %s is also a factor name", ind)}
			}
			if _, ok := m.indicatorIdx[ind]; !ok {
				m.indicatorIdx[ind] = len(m.indicators)
				m.indicators = append(m.indicators, ind)
			}
		}
	}

	nf, ni := len(m.factors), len(m.indicators)
	m.pattern = make([][]bool, ni)
	for i := range m.pattern {
		m.pattern[i] = make([]bool, nf)
	}
	m.markers = make([]int, nf)
	for f, l := range loadings {
		for _, ind := range l.Indicators {
			m.pattern[m.indicatorIdx[ind]][f] = true
		}
		m.markers[f] = m.indicatorIdx[l.Indicators[0]]
	}
	for f := range m.markers {
		for g := range m.markers {
			if f != g && m.markers[f] == m.markers[g] {
				return nil, &SyntaxError{Section: Measurement, Reason: fmt.Sprintf(
					"factors %s and %s share marker indicator %s", m.factors[f], m.factors[g], m.indicators[m.markers[f]])}
			}
		}
	}

	for _, r := range regs {
		for _, v := range append([]string{r.Outcome}, r.Predictors...) {
			if _, ok := m.factorIdx[v]; !ok {
				return nil, &SyntaxError{Section: Structural, Reason: fmt.Sprintf("%s is not a factor of the measurement model", v)}
			}
		}
	}

	ordered, err := orderRegressions(m.factors, m.factorIdx, regs)
	if err != nil {
		return nil, err
	}
	m.regressions = ordered

	isEndo := make([]bool, nf)
	for _, r := range ordered {
		eq := Equation{Outcome: m.factorIdx[r.Outcome]}
		for _, p := range r.Predictors {
			eq.Predictors = append(eq.Predictors, m.factorIdx[p])
		}
		m.equations = append(m.equations, eq)
		m.endogenous = append(m.endogenous, eq.Outcome)
		isEndo[eq.Outcome] = true
	}
	for f := 0; f < nf; f++ {
		if !isEndo[f] {
			m.exogenous = append(m.exogenous, f)
		}
	}

	return m, nil
}

// Factors returns the factor names in S1 order.
func (m *Model) Factors() []string { return append([]string(nil), m.factors...) }

// Indicators returns the indicator names in order of first appearance.
func (m *Model) Indicators() []string { return append([]string(nil), m.indicators...) }

// NumFactors returns the number of latent factors.
func (m *Model) NumFactors() int { return len(m.factors) }

// NumIndicators returns the number of observed indicators.
func (m *Model) NumIndicators() int { return len(m.indicators) }

// FactorIndex resolves a factor name.
func (m *Model) FactorIndex(name string) (int, bool) {
	i, ok := m.factorIdx[name]
	return i, ok
}

// IndicatorIndex resolves an indicator name.
func (m *Model) IndicatorIndex(name string) (int, bool) {
	i, ok := m.indicatorIdx[name]
	return i, ok
}

// Loads reports whether indicator i loads on factor f.
func (m *Model) Loads(i, f int) bool { return m.pattern[i][f] }

// Marker returns the indicator whose loading on f is fixed to one.
func (m *Model) Marker(f int) int { return m.markers[f] }

// IsMarker reports whether indicator i is the marker of factor f.
func (m *Model) IsMarker(i, f int) bool { return m.markers[f] == i }

// FreeLoadings counts the loadings estimated in the measurement model.
func (m *Model) FreeLoadings() int {
	n := 0
	for i := range m.pattern {
		for f := range m.pattern[i] {
			if m.pattern[i][f] && !m.IsMarker(i, f) {
				n++
			}
		}
	}

	return n
}

// Loadings returns the parsed measurement statements.
func (m *Model) Loadings() []Loading {
	out := make([]Loading, len(m.loadings))
	for i, l := range m.loadings {
		out[i] = Loading{Factor: l.Factor, Indicators: append([]string(nil), l.Indicators...)}
	}

	return out
}

// Regressions returns the structural equations in topological order.
func (m *Model) Regressions() []Regression {
	out := make([]Regression, len(m.regressions))
	for i, r := range m.regressions {
		out[i] = Regression{Outcome: r.Outcome, Predictors: append([]string(nil), r.Predictors...)}
	}

	return out
}

// Equations returns the index-resolved structural equations, ordered so that
// every predictor that is itself an outcome appears earlier.
func (m *Model) Equations() []Equation {
	out := make([]Equation, len(m.equations))
	for i, e := range m.equations {
		out[i] = Equation{Outcome: e.Outcome, Predictors: append([]int(nil), e.Predictors...)}
	}

	return out
}

// Exogenous returns the factors that are never an outcome.
func (m *Model) Exogenous() []int { return append([]int(nil), m.exogenous...) }

// Endogenous returns the outcome factors in equation order.
func (m *Model) Endogenous() []int { return append([]int(nil), m.endogenous...) }

// NumCoefficients is the number of regression coefficients per cluster.
func (m *Model) NumCoefficients() int {
	n := 0
	for _, e := range m.equations {
		n += len(e.Predictors)
	}

	return n
}

// CoefficientNames labels the flattened coefficient vector ("F2~F1", ...),
// in equation order and predictor order within an equation.
func (m *Model) CoefficientNames() []string {
	names := make([]string, 0, m.NumCoefficients())
	for _, r := range m.regressions {
		for _, p := range r.Predictors {
			names = append(names, r.Outcome+"~"+p)
		}
	}

	return names
}
