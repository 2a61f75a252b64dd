// Package inference computes standard errors for the cluster-specific
// regression coefficients of a fitted mixture and Wald tests of their
// equality across clusters.
//
// Standard errors:
//
//   - Naive: the complete-data information of each cluster's coefficients,
//     I_kj = Σ_g z_gk·N_g·S_g[P,P]/ψ_gj, inverted block by block. Clusters,
//     equations and the two estimation steps are treated as independent.
//   - Full: the observed information of the mixture log-likelihood over all
//     step-2 parameters θ = (B_1..B_K, log ψ, mixing logits), obtained by
//     numerically differentiating the analytic score (gonum diff/fd). When
//     the step-1 fit is available the Murphy–Topel two-step correction is
//     added:
//
//     V = V2 + V2·(Σ_g C_g·V1_g·C_gᵀ)·V2
//
//     with V2 = (−H)⁻¹, V1_g the step-1 covariance of vech(Φ̂_g) and
//     C_g = ∂²ℓ_g/∂θ∂vech(Φ_g)ᵀ.
//
// Wald tests use the coefficient block of the chosen covariance and χ²
// reference distributions (gonum stat/distuv).
package inference
