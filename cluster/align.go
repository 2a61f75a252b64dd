package cluster

import (
	"fmt"
	"math"
	"math/bits"
)

// Match returns the relabeling of m closest to ref: new cluster i of m is old
// cluster perm[i], minimizing Σ_i ‖B_ref,i − B_m,perm[i]‖². Pass the result
// to m.Permute.
//
// The assignment is solved exactly by dynamic programming over subsets:
// dp[mask] is the lowest cost of matching the first popcount(mask) reference
// clusters to the clusters of m in mask.
//
// Complexity: O(K·2^K) time and memory.
func Match(ref, m *Model) ([]int, error) {
	if ref == nil || m == nil || ref.K != m.K {
		return nil, fmt.Errorf("Match: models must have the same K: %w", ErrDimensionMismatch)
	}
	k := m.K
	if k > 20 {
		return nil, fmt.Errorf("Match: K=%d is too large for exact matching: %w", k, ErrInvalidK)
	}

	cost := make([][]float64, k)
	for i := range cost {
		a := ref.Clusters[i].Params.Flatten()
		cost[i] = make([]float64, k)
		for j := range cost[i] {
			b := m.Clusters[j].Params.Flatten()
			if len(a) != len(b) {
				return nil, fmt.Errorf("Match: coefficient lengths %d and %d: %w", len(a), len(b), ErrDimensionMismatch)
			}
			for t := range a {
				d := a[t] - b[t]
				cost[i][j] += d * d
			}
		}
	}

	full := 1<<k - 1
	dp := make([]float64, full+1)
	choice := make([]int, full+1)
	for mask := 1; mask <= full; mask++ {
		dp[mask] = math.Inf(1)
	}
	for mask := 0; mask < full; mask++ {
		if math.IsInf(dp[mask], 1) {
			continue
		}
		i := bits.OnesCount(uint(mask)) // next reference cluster
		for j := 0; j < k; j++ {
			if mask&(1<<j) != 0 {
				continue
			}
			next := mask | 1<<j
			if c := dp[mask] + cost[i][j]; c < dp[next] {
				dp[next], choice[next] = c, j
			}
		}
	}

	perm := make([]int, k)
	for mask := full; mask != 0; {
		j := choice[mask]
		perm[bits.OnesCount(uint(mask))-1] = j
		mask &^= 1 << j
	}

	return perm, nil
}
