package engine

import (
	"math"
	"sort"
)

const (
	// eps guards mass and cost comparisons.
	eps = 1e-9
	// rateTol is the tolerance for rate comparisons; rates are quotients of
	// prefix masses and accumulate more error than raw masses.
	rateTol = 1e-7
)

// item is one unit of capacity on a group's score axis.
type item struct {
	score    float64
	index    int // position in the group's input sample
	positive bool
}

// Frontier is a group's piecewise-linear concave cost–utility frontier.
// Points are ordered by increasing cost, start at the origin and carry the
// derived (fpr, tpr) coordinates. The concavity invariant (non-increasing
// marginal utility per unit cost) is enforced by the hull pass in build, not
// assumed from raw prefix sums.
type Frontier struct {
	Points []FrontierPoint

	group int
	name  string
	items []item // descending score, ties by ascending input index
	cut   []int  // cut[i] = number of items consumed at Points[i]
	rise  int    // last point index of the strictly increasing tpr prefix

	// rate denominators
	pos float64
	neg float64
}

// NewFrontier builds the frontier for one group's raw sample. An empty
// group yields the degenerate single-point frontier at the origin.
func NewFrontier(group int, g GroupSample) (*Frontier, error) {
	items := make([]item, 0, len(g.Samples))
	var pos, neg float64
	for i, s := range g.Samples {
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			return nil, &MalformedInputError{Group: g.Name, Index: i, Reason: "score is not a finite number"}
		}
		items = append(items, item{score: s.Score, index: i, positive: s.Positive})
		if s.Positive {
			pos++
		} else {
			neg++
		}
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].score != items[b].score {
			return items[a].score > items[b].score
		}
		return items[a].index < items[b].index
	})
	f := build(items, pos, neg)
	f.group, f.name = group, g.Name
	return f, nil
}

// build computes prefix sums over the sorted items and takes their upper
// convex hull with a single monotone-chain scan. Collinear and
// near-collinear vertices are merged, so each remaining segment carries a
// strictly smaller marginal utility than its predecessor.
func build(items []item, pos, neg float64) *Frontier {
	type raw struct {
		cost, util float64
		cut        int
	}
	pts := make([]raw, 1, len(items)+1)
	var cost, util float64
	for i, it := range items {
		cost++
		if it.positive {
			util++
		}
		pts = append(pts, raw{cost: cost, util: util, cut: i + 1})
	}

	hull := make([]raw, 0, len(pts))
	hull = append(hull, pts[0])
	for _, p := range pts[1:] {
		for len(hull) >= 2 {
			o, a := hull[len(hull)-2], hull[len(hull)-1]
			cross := (a.cost-o.cost)*(p.util-a.util) - (a.util-o.util)*(p.cost-a.cost)
			if cross < -eps {
				break
			}
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	f := &Frontier{items: items, pos: pos, neg: neg}
	f.Points = make([]FrontierPoint, len(hull))
	f.cut = make([]int, len(hull))
	for i, h := range hull {
		f.Points[i] = FrontierPoint{
			Cost:    h.cost,
			Utility: h.util,
			FPR:     safeRate(h.cost-h.util, neg),
			TPR:     safeRate(h.util, pos),
		}
		f.cut[i] = h.cut
	}
	f.rise = len(f.Points) - 1
	for f.rise > 0 && f.Points[f.rise].TPR <= f.Points[f.rise-1].TPR+eps {
		f.rise--
	}
	return f
}

func safeRate(mass, denom float64) float64 {
	if denom <= 0 {
		return 0
	}
	return mass / denom
}

// interpolate realizes a mixture as its expected frontier point.
func (f *Frontier) interpolate(m Mixture) FrontierPoint {
	lo, hi := f.Points[m.Lower], f.Points[m.Upper]
	w := m.Weight
	return FrontierPoint{
		Cost:    lo.Cost + w*(hi.Cost-lo.Cost),
		Utility: lo.Utility + w*(hi.Utility-lo.Utility),
		FPR:     lo.FPR + w*(hi.FPR-lo.FPR),
		TPR:     lo.TPR + w*(hi.TPR-lo.TPR),
	}
}

// thresholdProbs expands a frontier mixture into per-item acceptance
// probabilities: items inside the lower breakpoint's prefix are accepted
// outright, items of the bracketing bucket at the mixture weight.
func (f *Frontier) thresholdProbs(m Mixture) []float64 {
	probs := make([]float64, len(f.items))
	for i := 0; i < f.cut[m.Lower]; i++ {
		probs[i] = 1
	}
	for i := f.cut[m.Lower]; i < f.cut[m.Upper]; i++ {
		probs[i] = m.Weight
	}
	return probs
}

// fprAt returns the coefficients (a, b) of the frontier's minimum feasible
// false-positive rate as a linear function a + b*t of the true-positive
// rate, valid on the segment containing t. Beyond the last strictly rising
// breakpoint the minimum fpr is constant.
func (f *Frontier) fprAt(t float64) (a, b float64) {
	if f.rise == 0 || t >= f.Points[f.rise].TPR-eps {
		return f.Points[f.rise].FPR, 0
	}
	hi := sort.Search(f.rise, func(i int) bool { return f.Points[i+1].TPR >= t-eps }) + 1
	lo := hi - 1
	dt := f.Points[hi].TPR - f.Points[lo].TPR
	if dt <= eps {
		return f.Points[hi].FPR, 0
	}
	b = (f.Points[hi].FPR - f.Points[lo].FPR) / dt
	a = f.Points[lo].FPR - b*f.Points[lo].TPR
	return a, b
}

// lineCross finds where the frontier meets the cardinality line
// tpr*posTotal + fpr*negTotal = budget, returning the bracketing mixture
// and its expected point. The caller guarantees the budget does not exceed
// the line value at the frontier's endpoint.
func (f *Frontier) lineCross(budget, posTotal, negTotal float64) (Mixture, FrontierPoint) {
	line := func(p FrontierPoint) float64 { return p.TPR*posTotal + p.FPR*negTotal }
	n := len(f.Points)
	if n == 1 || budget <= eps {
		m := Mixture{}
		return m, f.Points[0]
	}
	hi := sort.Search(n, func(i int) bool { return line(f.Points[i]) >= budget-eps })
	if hi == 0 {
		m := Mixture{Upper: 1}
		return m, f.Points[0]
	}
	if hi == n {
		m := Mixture{Lower: n - 2, Upper: n - 1, Weight: 1}
		return m, f.Points[n-1]
	}
	lo := hi - 1
	span := line(f.Points[hi]) - line(f.Points[lo])
	w := 0.0
	if span > eps {
		w = (budget - line(f.Points[lo])) / span
	}
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	m := Mixture{Lower: lo, Upper: hi, Weight: w}
	return m, f.interpolate(m)
}
