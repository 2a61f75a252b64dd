// Package structural estimates the regression coefficients among latent
// factors for one cluster, given the step-1 factor covariances of the groups.
//
// Model:
//
//	η_j = Σ_{p∈P(j)} b_jp η_p + ζ_j,   Var(ζ_j) = ψ_gj (group-specific)
//
// The structural model is recursive with uncorrelated disturbances, so the
// factor-level likelihood of a group factorizes into one conditional normal
// term per equation plus a saturated term for the exogenous factors:
//
//	ℓ_g = ℓ_exo(S_xx) + Σ_j −N_g/2·[log(2πψ_gj) + r_gj/ψ_gj]
//	r_gj = s_jj − 2 bᵀ S_Pj + bᵀ S_PP b
//
// where S = Φ̂_g from step 1. Given posterior weights z_g ∈ [0,1], the cluster's
// coefficients solve the weighted generalized least-squares problem
//
//	b_j = (Σ_g w_g S_g[P,P])⁻¹ Σ_g w_g S_g[P,j],   w_g = z_g·N_g/ψ_gj.
//
// Complexity: O(G·q²+q³) per equation with q predictors.
package structural
