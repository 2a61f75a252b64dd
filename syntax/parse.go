package syntax

import (
	"regexp"
	"strings"
)

const (
	opLoading    = "=~"
	opRegression = "~"
	opCovariance = "~~"
	opDefine     = ":="
)

var identRE = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// statement is one non-empty, comment-stripped statement with its position.
type statement struct {
	line int
	text string
}

// split breaks a specification into statements on newlines and ';'.
// Comments run from '#' to the end of the physical line.
func split(src string) []statement {
	var out []statement
	n := 0
	for _, physical := range strings.Split(src, "\n") {
		if i := strings.IndexByte(physical, '#'); i >= 0 {
			physical = physical[:i]
		}
		for _, part := range strings.Split(physical, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n++
			out = append(out, statement{line: n, text: part})
		}
	}

	return out
}

// splitTerms splits "a + b + c" and validates every identifier.
func splitTerms(rhs string) ([]string, string) {
	parts := strings.Split(rhs, "+")
	terms := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, "empty term on right-hand side"
		}
		if strings.Contains(p, "*") {
			return nil, "modifiers (label*var, value*var) are not supported"
		}
		if !identRE.MatchString(p) {
			return nil, "invalid identifier " + p
		}
		if _, dup := seen[p]; dup {
			return nil, "duplicate term " + p
		}
		seen[p] = struct{}{}
		terms = append(terms, p)
	}

	return terms, ""
}

// parseMeasurement parses S1 into loadings in declaration order.
func parseMeasurement(src string) ([]Loading, error) {
	stmts := split(src)
	if len(stmts) == 0 {
		return nil, &SyntaxError{Section: Measurement, Reason: "no measurement statements"}
	}
	loadings := make([]Loading, 0, len(stmts))
	defined := make(map[string]struct{}, len(stmts))
	for _, st := range stmts {
		fail := func(reason string) error {
			return &SyntaxError{Section: Measurement, Line: st.line, Text: st.text, Reason: reason}
		}
		for _, bad := range []string{opCovariance, opDefine} {
			if strings.Contains(st.text, bad) {
				return nil, fail("operator " + bad + " is not supported")
			}
		}
		lhs, rhs, ok := strings.Cut(st.text, opLoading)
		if !ok {
			return nil, fail("expected factor =~ indicators")
		}
		if strings.Contains(rhs, opLoading) {
			return nil, fail("more than one =~ operator")
		}
		factor := strings.TrimSpace(lhs)
		if !identRE.MatchString(factor) {
			return nil, fail("invalid factor name " + factor)
		}
		if _, dup := defined[factor]; dup {
			return nil, fail("factor " + factor + " defined twice")
		}
		inds, reason := splitTerms(rhs)
		if reason != "" {
			return nil, fail(reason)
		}
		defined[factor] = struct{}{}
		loadings = append(loadings, Loading{Factor: factor, Indicators: inds})
	}

	return loadings, nil
}

// parseStructural parses S2, merging repeated outcomes in first-seen order.
func parseStructural(src string) ([]Regression, error) {
	stmts := split(src)
	if len(stmts) == 0 {
		return nil, &SyntaxError{Section: Structural, Reason: "no structural statements"}
	}
	var regs []Regression
	index := make(map[string]int)
	for _, st := range stmts {
		fail := func(reason string) error {
			return &SyntaxError{Section: Structural, Line: st.line, Text: st.text, Reason: reason}
		}
		for _, bad := range []string{opLoading, opCovariance, opDefine} {
			if strings.Contains(st.text, bad) {
				return nil, fail("operator " + bad + " is not allowed in the structural model")
			}
		}
		if strings.Count(st.text, opRegression) != 1 {
			return nil, fail("expected outcome ~ predictors")
		}
		lhs, rhs, _ := strings.Cut(st.text, opRegression)
		outcome := strings.TrimSpace(lhs)
		if !identRE.MatchString(outcome) {
			return nil, fail("invalid outcome name " + outcome)
		}
		preds, reason := splitTerms(rhs)
		if reason != "" {
			return nil, fail(reason)
		}
		i, ok := index[outcome]
		if !ok {
			index[outcome] = len(regs)
			regs = append(regs, Regression{Outcome: outcome})
			i = len(regs) - 1
		}
		for _, p := range preds {
			if p == outcome {
				return nil, fail("factor " + outcome + " regressed on itself")
			}
			for _, have := range regs[i].Predictors {
				if have == p {
					return nil, fail("duplicate predictor " + p + " for " + outcome)
				}
			}
			regs[i].Predictors = append(regs[i].Predictors, p)
		}
	}

	return regs, nil
}
