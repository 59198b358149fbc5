package engine

import "sort"

// Feasible returns the mixture of two adjacent frontier breakpoints whose
// expected rates equal the target exactly, plus the mixture's expected cost.
// The primary search axis is the rate that is strictly monotonic along the
// frontier (tpr when the group has positives, fpr otherwise); flat runs on
// the primary axis are resolved on the secondary one. The caller must have
// validated that the target lies on the frontier: a pair that cannot be
// matched by any adjacent-breakpoint mixture is an invariant violation.
func (f *Frontier) Feasible(target RatePair) (Mixture, float64, error) {
	if len(f.Points) == 1 {
		if target.TPR <= rateTol && target.FPR <= rateTol {
			return Mixture{}, 0, nil
		}
		return Mixture{}, 0, &InfeasibleTargetError{Group: f.group, Target: target}
	}

	primary := func(p FrontierPoint) float64 { return p.TPR }
	secondary := func(p FrontierPoint) float64 { return p.FPR }
	want, wantSec := target.TPR, target.FPR
	if f.pos <= eps {
		primary, secondary = secondary, primary
		want, wantSec = wantSec, want
	}

	n := len(f.Points)
	lo := sort.Search(n, func(i int) bool { return primary(f.Points[i]) >= want-rateTol })
	if lo == n {
		return Mixture{}, 0, &InfeasibleTargetError{Group: f.group, Target: target}
	}
	if lo > 0 {
		lo--
	}
	// skip past any run of breakpoints flat on the primary axis, picking the
	// segment whose secondary rate brackets the target
	for lo+1 < n-1 &&
		primary(f.Points[lo+1]) <= want+rateTol &&
		secondary(f.Points[lo+1]) <= wantSec+rateTol {
		lo++
	}
	hi := lo + 1

	var w float64
	if dp := primary(f.Points[hi]) - primary(f.Points[lo]); dp > rateTol {
		w = (want - primary(f.Points[lo])) / dp
	} else if ds := secondary(f.Points[hi]) - secondary(f.Points[lo]); ds > rateTol {
		w = (wantSec - secondary(f.Points[lo])) / ds
	}
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	m := Mixture{Lower: lo, Upper: hi, Weight: w}
	got := f.interpolate(m)
	if absDiff(got.TPR, target.TPR) > rateTol || absDiff(got.FPR, target.FPR) > rateTol {
		return Mixture{}, 0, &InfeasibleTargetError{Group: f.group, Target: target}
	}
	return m, got.Cost, nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
