// Package syntax parses the two model specifications of a mixture multigroup
// SEM into a strongly typed Model.
//
// Grammar (one statement per line or separated by ';', '#' starts a comment):
//
//	S1 (measurement):  factor =~ indicator1 + indicator2 + ...
//	S2 (structural):   outcome ~ predictor1 + predictor2 + ...
//
// Parse validates both strings at the boundary: identifiers, operators,
// duplicates, that every structural variable is a factor of S1, and that the
// structural model is recursive. Downstream packages never re-parse strings.
//
// Usage:
//
//	m, err := syntax.Parse(`
//	    F1 =~ x1 + x2 + x3
//	    F2 =~ x4 + x5 + x6`,
//	    `F2 ~ F1`)
//	if errors.Is(err, syntax.ErrInvalidModelSyntax) { ... }
//
// The first indicator of every factor is its marker: its loading is fixed to
// one to set the factor scale.
package syntax
