package syntax

import (
	"errors"
	"fmt"
)

// ErrInvalidModelSyntax is returned (wrapped in *SyntaxError) for every
// malformed or inconsistent model specification.
var ErrInvalidModelSyntax = errors.New("syntax: invalid model syntax")

// Section identifies which of the two specifications an error refers to.
type Section string

const (
	// Measurement is the S1 specification (=~ statements).
	Measurement Section = "S1"

	// Structural is the S2 specification (~ statements).
	Structural Section = "S2"
)

// SyntaxError carries the location of a syntax violation. It unwraps to
// ErrInvalidModelSyntax.
type SyntaxError struct {
	Section Section
	Line    int    // 1-based statement index; 0 for model-level checks
	Text    string // offending statement, trimmed
	Reason  string
}

// Error implements error.
func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("syntax: %s: %s", e.Section, e.Reason)
	}

	return fmt.Sprintf("syntax: %s statement %d %q: %s", e.Section, e.Line, e.Text, e.Reason)
}

// Unwrap exposes the sentinel to errors.Is.
func (e *SyntaxError) Unwrap() error { return ErrInvalidModelSyntax }

// Loading is one parsed measurement statement.
type Loading struct {
	Factor     string
	Indicators []string
}

// Regression is one structural equation after merging repeated outcomes.
type Regression struct {
	Outcome    string
	Predictors []string
}

// Equation is a Regression resolved to factor indices.
type Equation struct {
	Outcome    int
	Predictors []int
}
