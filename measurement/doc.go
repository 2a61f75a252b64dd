// Package measurement holds the step-1 part of the two-step mixture
// multigroup SEM: the per-group data summaries and the multigroup
// confirmatory factor model with metric invariance.
//
// What it estimates:
//
//	Σ_g = Λ Φ_g Λᵀ + Θ_g
//
//	  Λ  : loadings, shared by all groups (metric invariance);
//	        the first indicator of each factor is a marker fixed to 1.
//	  Φ_g: factor covariance of group g (free).
//	  Θ_g: diagonal unique variances of group g (free).
//	  τ_g: intercepts; the mean structure is saturated (τ_g = x̄_g).
//
// Algorithm:
//
//	Expectation–conditional-maximization on the covariance sufficient
//	statistics (Rubin & Thayer style EM for factor analysis). Each iteration
//	computes E[ηηᵀ|x] and E[xηᵀ] per group, then updates Φ_g, the free
//	loadings row by row (pooled over groups, weighted by N_g/θ_gi) and Θ_g.
//	The observed-data log-likelihood is non-decreasing.
//
// Estimates produced elsewhere can be consumed as-is through NewFit; the
// clustering layer only needs Fit.
package measurement
