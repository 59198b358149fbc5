package engine

// Sample is one scored, labeled individual.
type Sample struct {
	Score    float64 `json:"score"`
	Positive bool    `json:"positive"`
}

// GroupSample is the raw input for one demographic group.
type GroupSample struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// RatePair is an operating point: false-positive rate and true-positive rate.
type RatePair struct {
	FPR float64 `json:"fpr"`
	TPR float64 `json:"tpr"`
}

// FrontierPoint is one vertex of a group's cost–utility frontier.
// Cost is the expected number of accepted individuals, Utility the expected
// number of accepted positives.
type FrontierPoint struct {
	Cost    float64 `json:"cost"`
	Utility float64 `json:"utility"`
	FPR     float64 `json:"fpr"`
	TPR     float64 `json:"tpr"`
}

// Mixture is a randomized rule interpolating between two adjacent frontier
// breakpoints: weight 0 plays breakpoint Lower, weight 1 plays Upper.
type Mixture struct {
	Lower  int     `json:"lower"`
	Upper  int     `json:"upper"`
	Weight float64 `json:"weight"`
}

// GroupAllocation is one group's share of an allocation.
type GroupAllocation struct {
	Group   int     `json:"group"`
	Name    string  `json:"name"`
	Cost    float64 `json:"cost"`
	Utility float64 `json:"utility"`

	// Mixture is the threshold component: the point where the group's
	// frontier meets the cardinality line.
	Mixture Mixture `json:"mixture"`

	// ThresholdShare is the probability of playing the threshold rule in
	// Mixture; with the complementary probability the group plays the
	// capacity lottery, which accepts every individual at the same rate.
	// 1 means a pure frontier mixture (the bottleneck group).
	ThresholdShare float64 `json:"threshold_share"`

	// Probabilities[i] is the acceptance probability of the group's i-th
	// individual in frontier order (descending score, ties broken by
	// ascending input index).
	Probabilities []float64 `json:"probabilities"`
}

// Allocation is the efficient, equalized-odds-feasible allocation for one
// budget: every group realizes the same Shared rate pair, expected costs sum
// to the budget, and total utility is maximal under those constraints.
type Allocation struct {
	Budget       float64  `json:"budget"`
	TotalCost    float64  `json:"total_cost"`
	TotalUtility float64  `json:"total_utility"`
	Shared       RatePair `json:"shared"`

	// UnfairUtility is the utility of the efficiency-optimal allocation with
	// the fairness constraint dropped, for price-of-fairness reporting.
	UnfairUtility float64 `json:"unfair_utility"`

	Groups []GroupAllocation `json:"groups"`
}

// Chain is the monotonic sequence of allocations for every integer budget
// from 0 to the population size. Allocations[b] is nested inside
// Allocations[b+1]: no individual's acceptance probability ever decreases
// as the budget grows.
type Chain struct {
	Allocations []Allocation `json:"allocations"`
	Repairs     int          `json:"repairs"`
}

// ChainPoint is one row of the budget curves derived from a chain.
type ChainPoint struct {
	Budget        int     `json:"budget"`
	Cost          float64 `json:"cost"`
	Utility       float64 `json:"utility"`
	FPR           float64 `json:"fpr"`
	TPR           float64 `json:"tpr"`
	UnfairUtility float64 `json:"unfair_utility"`
}

// Series flattens the chain into the utility-vs-budget and cost-vs-budget
// curves consumed by plotting clients.
func (c *Chain) Series() []ChainPoint {
	pts := make([]ChainPoint, len(c.Allocations))
	for i := range c.Allocations {
		a := &c.Allocations[i]
		pts[i] = ChainPoint{
			Budget:        i,
			Cost:          a.TotalCost,
			Utility:       a.TotalUtility,
			FPR:           a.Shared.FPR,
			TPR:           a.Shared.TPR,
			UnfairUtility: a.UnfairUtility,
		}
	}
	return pts
}
