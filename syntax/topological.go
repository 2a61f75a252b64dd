package syntax

import "fmt"

// Visitation states for the cycle check.
const (
	white = iota // not visited
	gray         // on the recursion stack
	black        // fully explored
)

// orderRegressions returns regs sorted so that an outcome's equation comes
// after the equations of all its endogenous predictors. Factors are visited in
// S1 order, which makes the result deterministic. A cycle in the
// predictor→outcome graph is a syntax error: the clustering layer supports
// recursive models only.
//
// Complexity: O(V + E).
func orderRegressions(factors []string, idx map[string]int, regs []Regression) ([]Regression, error) {
	byOutcome := make(map[string]Regression, len(regs))
	for _, r := range regs {
		byOutcome[r.Outcome] = r
	}

	state := make([]int, len(factors))
	order := make([]Regression, 0, len(regs))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		i := idx[name]
		switch state[i] {
		case gray:
			return &SyntaxError{Section: Structural, Reason: fmt.Sprintf("cycle in structural model: %v", append(path, name))}
		case black:
			return nil
		}
		state[i] = gray
		if r, ok := byOutcome[name]; ok {
			for _, p := range r.Predictors {
				if err := visit(p, append(path, name)); err != nil {
					return err
				}
			}
			order = append(order, r)
		}
		state[i] = black

		return nil
	}

	for _, f := range factors {
		if err := visit(f, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}
