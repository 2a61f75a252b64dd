package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// randomPartition shuffles the groups, seeds every cluster with one of the
// first K groups and assigns the rest uniformly, so no cluster starts empty.
func randomPartition(rng *rand.Rand, g, k int) []int {
	order := rng.Perm(g)
	labels := make([]int, g)
	for i, grp := range order {
		if i < k {
			labels[grp] = i
		} else {
			labels[grp] = rng.Intn(k)
		}
	}

	return labels
}

func oneHot(labels []int, k int) *mat.Dense {
	z := mat.NewDense(len(labels), k, nil)
	for g, c := range labels {
		z.Set(g, c, 1)
	}

	return z
}

// userPosterior validates Options.Partition / Options.Posterior.
func userPosterior(opts Options, g, k int) (*mat.Dense, error) {
	if opts.Partition != nil {
		if len(opts.Partition) != g {
			return nil, fmt.Errorf("partition has %d labels for %d groups: %w", len(opts.Partition), g, ErrDimensionMismatch)
		}
		for i, c := range opts.Partition {
			if c < 0 || c >= k {
				return nil, fmt.Errorf("partition label %d of group %d outside [0,%d): %w", c, i, k, ErrDimensionMismatch)
			}
		}

		return oneHot(opts.Partition, k), nil
	}
	if opts.Posterior == nil {
		return nil, fmt.Errorf("user init without partition or posterior: %w", ErrDimensionMismatch)
	}
	r, c := opts.Posterior.Dims()
	if r != g || c != k {
		return nil, fmt.Errorf("posterior is %d×%d, want %d×%d: %w", r, c, g, k, ErrDimensionMismatch)
	}
	for i := 0; i < g; i++ {
		var sum float64
		for j := 0; j < k; j++ {
			v := opts.Posterior.At(i, j)
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("posterior row %d has entry %v: %w", i, v, ErrDimensionMismatch)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-8 {
			return nil, fmt.Errorf("posterior row %d sums to %v: %w", i, sum, ErrDimensionMismatch)
		}
	}

	return mat.DenseCopyOf(opts.Posterior), nil
}

// wardPartition cuts an agglomerative Ward tree over the rows of x at k
// clusters. Distances are updated with the Lance–Williams recurrence on
// squared Euclidean distances. Labels are numbered by first appearance.
//
// Complexity: O(G³) time, O(G²) memory.
func wardPartition(x [][]float64, k int) []int {
	n := len(x)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			var s float64
			for t := range x[i] {
				diff := x[i][t] - x[j][t]
				s += diff * diff
			}
			d[i][j], d[j][i] = s, s
		}
	}
	size := make([]float64, n)
	root := make([]int, n) // representative of each point
	alive := make([]bool, n)
	for i := range size {
		size[i], root[i], alive[i] = 1, i, true
	}

	for clusters := n; clusters > k; clusters-- {
		a, b, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if alive[j] && d[i][j] < best {
					a, b, best = i, j, d[i][j]
				}
			}
		}
		// merge b into a
		for c := 0; c < n; c++ {
			if !alive[c] || c == a || c == b {
				continue
			}
			nc := size[c]
			v := ((size[a]+nc)*d[c][a] + (size[b]+nc)*d[c][b] - nc*d[a][b]) / (size[a] + size[b] + nc)
			d[c][a], d[a][c] = v, v
		}
		size[a] += size[b]
		alive[b] = false
		for i := range root {
			if root[i] == b {
				root[i] = a
			}
		}
	}

	labels := make([]int, n)
	seen := make(map[int]int, k)
	for i, r := range root {
		l, ok := seen[r]
		if !ok {
			l = len(seen)
			seen[r] = l
		}
		labels[i] = l
	}

	return labels
}
