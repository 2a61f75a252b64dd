// Package mmgsem fits mixture multigroup structural equation models:
// groups are clustered on the regressions among their latent factors while
// the measurement model is held metrically invariant.
//
// Estimation runs in two steps:
//
//	step 1  measurement/  multigroup CFA; shared loadings Λ, group-specific
//	                      intercepts, unique variances Θ_g and factor
//	                      covariances Φ_g
//	step 2  cluster/      EM over the structural model; cluster-specific
//	                      coefficients B_k, group-specific residual
//	                      variances Ψ_g, mixing weights π
//
// Around them:
//
//	syntax/      "F =~ x1 + x2" and "F2 ~ F1" model strings
//	structural/  weighted GLS estimator and likelihood pieces of step 2
//	selection/   one fit per K, BIC/AIC/ICL/CHull table, Extract(K)
//	inference/   standard errors (naive, full, two-step corrected), Wald tests
//	dataset/     grouped CSV input
//	simulate/    synthetic mixture populations
//	config/, store/, metrics/  YAML runs, persisted results, Prometheus
//
// The root package ties the pipeline together (Analyze) and re-exports the
// error taxonomy, so callers can match failures with errors.Is without
// importing every subpackage.
//
// Quick start:
//
//	a, err := mmgsem.Analyze(ctx, s1, s2, groups, mmgsem.DefaultOptions(1, 6))
//	if err != nil && !errors.Is(err, mmgsem.ErrNonConvergence) {
//		return err
//	}
//	k, _ := a.Selection.Best(selection.BIC)
//	se, tests, err := a.Infer(ctx, k)
//
// Determinism: a fixed seed and input give identical results, independent of
// how many fits run concurrently.
package mmgsem
