package selection

import (
	"errors"
	"sort"
)

// ErrNoHullSelection is returned by Best(CHull) when fewer than three models
// remain on the hull, so no scree ratio exists.
var ErrNoHullSelection = errors.New("selection: convex hull has fewer than three points")

// HullPoint is one (complexity, fit) pair; higher Fit is better.
type HullPoint struct {
	Complexity float64
	Fit        float64
}

// ConvexHull returns, for every input point, whether it lies on the upper
// convex boundary of the non-dominated points and its scree ratio (0 for the
// end points and for points off the hull). The selected index has the
// largest ratio; ties follow tb. selected is -1 with fewer than three hull
// points.
//
// Complexity: O(n²) for n points.
func ConvexHull(pts []HullPoint, tb TieBreak) (onHull []bool, scree []float64, selected int) {
	n := len(pts)
	onHull = make([]bool, n)
	scree = make([]float64, n)
	selected = -1

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := pts[idx[a]], pts[idx[b]]
		if pa.Complexity != pb.Complexity {
			return pa.Complexity < pb.Complexity
		}

		return pa.Fit > pb.Fit
	})

	// drop points not strictly better than every simpler one
	var hull []int
	for _, i := range idx {
		if len(hull) > 0 {
			last := pts[hull[len(hull)-1]]
			if pts[i].Fit <= last.Fit || pts[i].Complexity == last.Complexity {
				continue
			}
		}
		hull = append(hull, i)
	}

	// keep the upper boundary: drop any middle point on or below its chord
	for changed := true; changed && len(hull) >= 3; {
		changed = false
		for j := 1; j < len(hull)-1; j++ {
			a, b, c := pts[hull[j-1]], pts[hull[j]], pts[hull[j+1]]
			chord := a.Fit + (c.Fit-a.Fit)*(b.Complexity-a.Complexity)/(c.Complexity-a.Complexity)
			if b.Fit <= chord {
				hull = append(hull[:j], hull[j+1:]...)
				changed = true

				break
			}
		}
	}

	for _, i := range hull {
		onHull[i] = true
	}
	if len(hull) < 3 {
		return onHull, scree, selected
	}

	best := 0.0
	for j := 1; j < len(hull)-1; j++ {
		a, b, c := pts[hull[j-1]], pts[hull[j]], pts[hull[j+1]]
		st := ((b.Fit - a.Fit) / (b.Complexity - a.Complexity)) /
			((c.Fit - b.Fit) / (c.Complexity - b.Complexity))
		scree[hull[j]] = st
		switch {
		case selected < 0 || st > best:
			selected, best = hull[j], st
		case st == best && tb == Complex:
			selected = hull[j]
		}
	}

	return onHull, scree, selected
}
