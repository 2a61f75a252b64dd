// Package selection fits the mixture for every K of a range and compares the
// fits.
//
// Criteria per K (p free parameters, N total sample size, G groups):
//
//	BIC   = −2ℓ + p·ln N        BIC_G = −2ℓ + p·ln G
//	AIC   = −2ℓ + 2p            AIC3  = −2ℓ + 3p
//	AICc  = AIC + 2p(p+1)/(N−p−1)
//	EN    = −Σ z log z          R²_E  = 1 − EN/(G ln K)
//	ICL   = BIC + 2·EN
//
// The convex hull criterion takes (p, ℓ) pairs, drops models that a less
// complex model fits at least as well, keeps the upper convex boundary and
// selects the interior hull point with the largest scree ratio
//
//	st_i = [(ℓ_i − ℓ_{i−1})/(p_i − p_{i−1})] / [(ℓ_{i+1} − ℓ_i)/(p_{i+1} − p_i)].
//
// The fits of different K are independent and run on a bounded errgroup;
// the result table is always ordered by K.
package selection
