package engine

import (
	"context"
	"time"
)

// probTol is the slack allowed when checking per-item acceptance
// probabilities for nesting.
const probTol = 1e-7

// BuildChain produces the full monotonic chain of allocations for every
// integer budget from 0 to the population size. Each budget adopts the
// sweep's own optimum, so utilities always match the per-budget optimum.
// When that optimum does not nest over its predecessor, the transition is
// repaired: the shared rates at each budget are forced, but the per-item
// probabilities realizing them are not unique, so the earlier allocation is
// re-realized inside its successor's support. The re-realization may break
// nesting one step further down, in which case it cascades toward the empty
// allocation at budget 0, which nests under everything.
func (p *Population) BuildChain(ctx context.Context) (*Chain, error) {
	start := time.Now()
	allocs := make([]Allocation, p.size+1)
	allocs[0] = p.emptyAllocation()

	repairs := 0
	for b := 1; b <= p.size; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cand, err := p.Allocate(float64(b))
		if err != nil {
			return nil, err
		}
		allocs[b] = *cand
		if nested(&allocs[b-1], &allocs[b]) {
			continue
		}

		repairs++
		for k := b - 1; k >= 1; k-- {
			re, ok := p.reRealize(&allocs[k], &allocs[k+1])
			if !ok {
				return nil, &ChainError{Budget: b, Reason: "shared acceptance rates regress between consecutive budgets"}
			}
			allocs[k] = *re
			if nested(&allocs[k-1], &allocs[k]) {
				break
			}
		}
	}

	chainBuildSeconds.Observe(time.Since(start).Seconds())
	chainRepairsTotal.Add(float64(repairs))
	return &Chain{Allocations: allocs, Repairs: repairs}, nil
}

// reRealize rebuilds prev's per-item probabilities inside next's support.
// Scaling next's positives by the ratio of the two true-positive rates and
// its negatives by the false-positive ratio reproduces prev's shared rates,
// cost and utility exactly, and with non-regressing rates both ratios are
// at most one, so the result never exceeds next's probabilities.
func (p *Population) reRealize(prev, next *Allocation) (*Allocation, bool) {
	tscale, ok := rateRatio(prev.Shared.TPR, next.Shared.TPR)
	if !ok {
		return nil, false
	}
	fscale, ok := rateRatio(prev.Shared.FPR, next.Shared.FPR)
	if !ok {
		return nil, false
	}

	out := *prev
	out.Groups = make([]GroupAllocation, len(prev.Groups))
	for g := range prev.Groups {
		ga := prev.Groups[g]
		probs := make([]float64, len(next.Groups[g].Probabilities))
		for i, q := range next.Groups[g].Probabilities {
			if p.frontiers[g].items[i].positive {
				probs[i] = q * tscale
			} else {
				probs[i] = q * fscale
			}
		}
		ga.Probabilities = probs
		out.Groups[g] = ga
	}
	return &out, true
}

// rateRatio returns prev/next clamped to [0, 1]. A regressing rate pair is
// rejected; a vanishing next rate forces a vanishing prev rate.
func rateRatio(prev, next float64) (float64, bool) {
	if prev > next+rateTol {
		return 0, false
	}
	if next <= eps {
		return 0, true
	}
	r := prev / next
	if r > 1 {
		r = 1
	}
	return r, true
}

func (p *Population) emptyAllocation() Allocation {
	a := Allocation{Groups: make([]GroupAllocation, len(p.frontiers))}
	for g, f := range p.frontiers {
		a.Groups[g] = GroupAllocation{
			Group:         g,
			Name:          f.name,
			Probabilities: make([]float64, len(f.items)),
		}
	}
	return a
}

// nested reports whether every individual accepted with positive
// probability in prev keeps at least that probability in next.
func nested(prev, next *Allocation) bool {
	for g := range prev.Groups {
		pp, np := prev.Groups[g].Probabilities, next.Groups[g].Probabilities
		for i := range pp {
			if np[i] < pp[i]-probTol {
				return false
			}
		}
	}
	return true
}
