package engine

import (
	"errors"
	"fmt"
)

// ErrBudgetOutOfRange is returned before any computation when a requested
// budget lies outside [0, population size].
var ErrBudgetOutOfRange = errors.New("budget outside [0, population size]")

// MalformedInputError reports an unusable sample. It is fatal: all
// downstream geometry assumes valid rate computations.
type MalformedInputError struct {
	Group  string
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input in group %q, sample %d: %s", e.Group, e.Index, e.Reason)
}

// InfeasibleTargetError reports an oracle lookup for a rate pair outside the
// group's achievable region. Sweeps only request validated targets, so this
// is an internal invariant violation, not a user-facing condition.
type InfeasibleTargetError struct {
	Group  int
	Target RatePair
}

func (e *InfeasibleTargetError) Error() string {
	return fmt.Sprintf("rate pair (fpr=%g, tpr=%g) outside achievable region of group %d",
		e.Target.FPR, e.Target.TPR, e.Group)
}

// ChainError reports that the chain builder could not repair a transition.
// The shared rates are non-decreasing in the budget for every well-formed
// population, so this indicates a modeling bug and must be surfaced, not
// recovered.
type ChainError struct {
	Budget int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("monotonic chain broken at budget %d: %s", e.Budget, e.Reason)
}
