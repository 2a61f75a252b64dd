// Package cluster implements the mixture step of mixture multigroup SEM:
// groups are clustered on their structural relations by an ECM algorithm,
// with cluster-specific regression coefficients B_k, group-specific
// disturbance variances ψ_g and a saturated exogenous block per group.
//
// Log-likelihood of group g in cluster k (factor level, given step-1 Φ̂_g):
//
//	ℓ_gk = Σ_j −N_g/2·[log(2πψ_gj) + r_gkj/ψ_gj]
//	ℓ    = Σ_g { ℓ_exo,g + log Σ_k π_k exp(ℓ_gk) }
//
// One iteration:
//
//  1. CM-step B: for each cluster, weighted GLS on Φ̂ with weights z_gk·N_g/ψ_gj.
//  2. CM-step Ψ: ψ_gj = Σ_k z_gk·r_gkj (floored at Options.MinPsi).
//  3. CM-step π: π_k = Σ_g z_gk / G.
//  4. E-step: z_gk ∝ π_k exp(ℓ_gk), computed by log-sum-exp.
//
// With Options.Hard the E-step assigns each group to its modal cluster
// (classification EM) and the tracked objective is the classification
// log-likelihood Σ_g max_k {log π_k + ℓ_gk} + ℓ_exo,g.
//
// Starting partitions come from random restarts, Ward clustering of per-group
// regression estimates, or the caller. Random restarts draw from independent
// streams derived from Options.Seed, so a given seed reproduces the fit
// exactly. Cluster labels are arbitrary; Match aligns two fits by coefficient
// distance and Model.Permute relabels.
//
// Complexity per iteration: O(G·K·J·q²) for J equations with at most q
// predictors each, plus O(K·J·q³) for the solves.
package cluster
