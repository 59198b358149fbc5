package engine

import (
	"container/heap"
	"fmt"
)

// axis identifies the primary swept rate. It is fixed once per sweep: the
// true-positive rate whenever the population has positives, otherwise the
// false-positive rate (with tpr degenerate, fairness binds only the fpr).
type axis int

const (
	axisTPR axis = iota
	axisFPR
)

// sweep solves the shared-rate budget problem over a set of group
// frontiers.
type sweep struct {
	frontiers []*Frontier
	pos, neg  float64 // population rate denominators
	primary   axis
}

func newSweep(frontiers []*Frontier) *sweep {
	s := &sweep{frontiers: frontiers}
	for _, f := range frontiers {
		s.pos += f.pos
		s.neg += f.neg
	}
	if s.pos <= eps {
		s.primary = axisFPR
	}
	return s
}

// solve finds the shared rate pair that maximizes total utility at the
// given total expected cost and realizes it for every group.
//
// Total cost as a function of the swept tpr is piecewise linear: between
// breakpoints it equals tpr*pos + fpr(tpr)*neg, where the shared fpr rides
// the upper envelope of the groups' minimum-fpr curves. Utility (tpr*pos)
// grows monotonically along the sweep, so the optimum sits exactly where
// the cost function crosses the budget.
func (s *sweep) solve(budget float64) (*Allocation, error) {
	sweepsTotal.Inc()
	total := s.pos + s.neg
	if budget < -eps || budget > total+eps {
		return nil, fmt.Errorf("solve for budget %g of %g available: %w", budget, total, ErrBudgetOutOfRange)
	}
	if budget < 0 {
		budget = 0
	}
	if budget > total {
		budget = total
	}

	theta, phi := s.sharedRates(budget)
	return s.realize(budget, theta, phi)
}

func (s *sweep) sharedRates(budget float64) (theta, phi float64) {
	if budget <= eps {
		return 0, 0
	}
	if s.primary == axisFPR {
		if s.neg <= eps {
			return 0, 0
		}
		phi = budget / s.neg
		if phi > 1 {
			phi = 1
		}
		return 0, phi
	}

	// groups with both classes present constrain the shared fpr from below
	var env []*Frontier
	for _, f := range s.frontiers {
		if f.pos > eps && f.neg > eps && len(f.Points) > 1 {
			env = append(env, f)
		}
	}

	if len(env) > 0 {
		prev := 0.0
		for _, t := range mergeBreakpoints(env) {
			if s.costAt(t, env) >= budget-eps {
				theta = s.segmentSolve(budget, prev, t, env)
				return theta, s.lineFPR(budget, theta)
			}
			prev = t
		}
	}

	// the envelope is exhausted below the budget: tpr saturates and the
	// leftover budget raises the shared fpr along the line
	theta = budget / s.pos
	if theta > 1 {
		theta = 1
	}
	return theta, s.lineFPR(budget, theta)
}

// costAt evaluates the total-cost function at the swept parameter t.
func (s *sweep) costAt(t float64, env []*Frontier) float64 {
	var phi float64
	for _, f := range env {
		a, b := f.fprAt(t)
		if y := a + b*t; y > phi {
			phi = y
		}
	}
	return t*s.pos + phi*s.neg
}

// segmentSolve solves cost(t) = budget in closed form on the elementary
// interval (lo, hi], where every envelope group is linear. Cost there is
// max over groups of t*pos + (a+b*t)*neg, all increasing in t, so the
// crossing is the smallest of the per-group solutions.
func (s *sweep) segmentSolve(budget, lo, hi float64, env []*Frontier) float64 {
	mid := (lo + hi) / 2
	theta := hi
	for _, f := range env {
		a, b := f.fprAt(mid)
		if cand := (budget - s.neg*a) / (s.pos + s.neg*b); cand < theta {
			theta = cand
		}
	}
	if theta < lo {
		theta = lo
	}
	return theta
}

func (s *sweep) lineFPR(budget, theta float64) float64 {
	if s.neg <= eps {
		return 0
	}
	phi := (budget - theta*s.pos) / s.neg
	if phi < 0 {
		phi = 0
	}
	if phi > 1 {
		phi = 1
	}
	return phi
}

// realize builds the allocation for the chosen shared pair: every group's
// expected cost is theta*pos + phi*neg, realized as a mixture of its
// cardinality-line crossing and the capacity lottery.
func (s *sweep) realize(budget, theta, phi float64) (*Allocation, error) {
	var sc float64
	if total := s.pos + s.neg; total > eps {
		sc = budget / total
	}

	alloc := &Allocation{Budget: budget, Shared: RatePair{FPR: phi, TPR: theta}}
	alloc.Groups = make([]GroupAllocation, len(s.frontiers))
	for g, f := range s.frontiers {
		ga, err := s.realizeGroup(f, budget, theta, phi, sc)
		if err != nil {
			return nil, err
		}
		alloc.Groups[g] = ga
		alloc.TotalCost += ga.Cost
		alloc.TotalUtility += ga.Utility
	}

	// numeric leftovers are absorbed by the lowest group index so that
	// reported costs sum to the budget exactly
	if len(alloc.Groups) > 0 {
		alloc.Groups[0].Cost += budget - alloc.TotalCost
		alloc.TotalCost = budget
	}
	return alloc, nil
}

// realizeGroup blends the group's cardinality-line crossing with the
// capacity lottery scaled by sc, the budget's share of the total capacity.
// Both endpoints sit on the cardinality line, so any blend does too; the
// share is chosen so the blend's rates land exactly on (theta, phi).
func (s *sweep) realizeGroup(f *Frontier, budget, theta, phi, sc float64) (GroupAllocation, error) {
	ga := GroupAllocation{Group: f.group, Name: f.name, Probabilities: make([]float64, len(f.items))}
	if len(f.Points) == 1 {
		return ga, nil
	}
	ga.Cost = theta*f.pos + phi*f.neg
	ga.Utility = theta * f.pos

	if f.pos <= eps || f.neg <= eps {
		// single-class group: only the present class's rate binds, realized
		// as a pure frontier mixture
		target := RatePair{FPR: phi, TPR: theta}
		if f.pos <= eps {
			target.TPR = 0
		} else {
			target.FPR = 0
		}
		m, _, err := f.Feasible(target)
		if err != nil {
			return ga, err
		}
		ga.Mixture, ga.ThresholdShare = m, 1
		copy(ga.Probabilities, f.thresholdProbs(m))
		return ga, nil
	}

	m, cross := f.lineCross(budget, s.pos, s.neg)
	ga.Mixture = m
	rho := 1.0
	if cross.TPR <= sc+eps {
		rho = 0
	} else {
		rho = (theta - sc) / (cross.TPR - sc)
		if rho < 0 {
			rho = 0
		}
		if rho > 1 {
			rho = 1
		}
	}
	ga.ThresholdShare = rho

	tp := f.thresholdProbs(m)
	for i := range ga.Probabilities {
		ga.Probabilities[i] = rho*tp[i] + (1-rho)*sc
	}
	return ga, nil
}

// frontierCursor walks one group's breakpoint parameters in ascending order.
type frontierCursor struct {
	f   *Frontier
	idx int
}

func (c *frontierCursor) value() float64 { return c.f.Points[c.idx].TPR }

type cursorHeap []*frontierCursor

func (h cursorHeap) Len() int            { return len(h) }
func (h cursorHeap) Less(i, j int) bool  { return h[i].value() < h[j].value() }
func (h cursorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)         { *h = append(*h, x.(*frontierCursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergeBreakpoints k-way merges the groups' frontier vertex parameters into
// one ascending sequence, deduplicating near-equal values.
func mergeBreakpoints(env []*Frontier) []float64 {
	h := make(cursorHeap, 0, len(env))
	for _, f := range env {
		h = append(h, &frontierCursor{f: f})
	}
	heap.Init(&h)
	var out []float64
	for h.Len() > 0 {
		c := h[0]
		if v := c.value(); len(out) == 0 || v > out[len(out)-1]+eps {
			out = append(out, v)
		}
		c.idx++
		if c.idx < len(c.f.Points) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	return out
}
