package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Population holds the loaded groups and their frontiers. Frontiers are
// built once at construction and are immutable for the population's
// lifetime; all budget queries share them.
type Population struct {
	frontiers []*Frontier
	size      int
	pos, neg  float64
}

// NewPopulation validates the raw group samples and builds every group's
// frontier. Construction is the only place malformed input surfaces; all
// later operations assume valid geometry.
func NewPopulation(groups []GroupSample) (*Population, error) {
	p := &Population{frontiers: make([]*Frontier, len(groups))}

	// frontier construction is independent per group: inputs are read-only
	// and each goroutine writes only its own slot
	errs := make([]error, len(groups))
	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.frontiers[i], errs[i] = NewFrontier(i, groups[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, f := range p.frontiers {
		p.size += len(f.items)
		p.pos += f.pos
		p.neg += f.neg
	}
	return p, nil
}

// Size is the number of individuals across all groups.
func (p *Population) Size() int { return p.size }

// NumGroups is the number of groups.
func (p *Population) NumGroups() int { return len(p.frontiers) }

// Frontier returns group i's cached frontier.
func (p *Population) Frontier(i int) *Frontier { return p.frontiers[i] }

// Allocate computes the efficient equalized-odds allocation for one budget.
func (p *Population) Allocate(budget float64) (*Allocation, error) {
	if budget < 0 || budget > float64(p.size) {
		return nil, fmt.Errorf("budget %g with population of %d: %w", budget, p.size, ErrBudgetOutOfRange)
	}
	a, err := newSweep(p.frontiers).solve(budget)
	if err != nil {
		return nil, err
	}
	a.UnfairUtility = p.unfairUtility(budget)
	return a, nil
}

// unfairUtility is the utility of the efficiency-optimal allocation with
// the fairness constraint dropped: the budget is filled from the steepest
// frontier segments across all groups, regardless of rate parity.
func (p *Population) unfairUtility(budget float64) float64 {
	type segment struct{ slope, mass float64 }
	var segs []segment
	for _, f := range p.frontiers {
		for i := 1; i < len(f.Points); i++ {
			dc := f.Points[i].Cost - f.Points[i-1].Cost
			if dc <= eps {
				continue
			}
			segs = append(segs, segment{slope: (f.Points[i].Utility - f.Points[i-1].Utility) / dc, mass: dc})
		}
	}
	sort.Slice(segs, func(a, b int) bool { return segs[a].slope > segs[b].slope })

	var util float64
	rem := budget
	for _, s := range segs {
		if rem <= eps {
			break
		}
		take := s.mass
		if take > rem {
			take = rem
		}
		util += s.slope * take
		rem -= take
	}
	return util
}
