package engine

import (
	"errors"
	"math"
	"testing"
)

func mixedGroup() GroupSample {
	// three positives and three negatives, one misranked negative in the
	// middle of the order
	return GroupSample{Name: "mixed", Samples: []Sample{
		{Score: 0.95, Positive: true},
		{Score: 0.9, Positive: true},
		{Score: 0.8, Positive: false},
		{Score: 0.7, Positive: true},
		{Score: 0.5, Positive: false},
		{Score: 0.3, Positive: false},
	}}
}

func TestNewFrontierHull(t *testing.T) {
	f, err := NewFrontier(0, mixedGroup())
	if err != nil {
		t.Fatalf("NewFrontier: %v", err)
	}

	want := []FrontierPoint{
		{Cost: 0, Utility: 0, FPR: 0, TPR: 0},
		{Cost: 2, Utility: 2, FPR: 0, TPR: 2.0 / 3},
		{Cost: 4, Utility: 3, FPR: 1.0 / 3, TPR: 1},
		{Cost: 6, Utility: 3, FPR: 1, TPR: 1},
	}
	if len(f.Points) != len(want) {
		t.Fatalf("got %d points, want %d: %+v", len(f.Points), len(want), f.Points)
	}
	for i, w := range want {
		g := f.Points[i]
		if math.Abs(g.Cost-w.Cost) > eps || math.Abs(g.Utility-w.Utility) > eps ||
			math.Abs(g.FPR-w.FPR) > rateTol || math.Abs(g.TPR-w.TPR) > rateTol {
			t.Errorf("point %d: got %+v, want %+v", i, g, w)
		}
	}
}

func TestFrontierConcavity(t *testing.T) {
	groups := []GroupSample{
		mixedGroup(),
		{Name: "reversed", Samples: []Sample{
			{Score: 0.8, Positive: false},
			{Score: 0.7, Positive: true},
		}},
		{Name: "all-positive", Samples: []Sample{
			{Score: 0.4, Positive: true},
			{Score: 0.6, Positive: true},
		}},
	}
	for _, g := range groups {
		t.Run(g.Name, func(t *testing.T) {
			f, err := NewFrontier(0, g)
			if err != nil {
				t.Fatalf("NewFrontier: %v", err)
			}
			prev := math.Inf(1)
			for i := 1; i < len(f.Points); i++ {
				dc := f.Points[i].Cost - f.Points[i-1].Cost
				du := f.Points[i].Utility - f.Points[i-1].Utility
				if dc <= eps {
					t.Fatalf("segment %d has non-positive cost span %g", i, dc)
				}
				slope := du / dc
				if slope > prev+eps {
					t.Errorf("segment %d slope %g exceeds previous %g", i, slope, prev)
				}
				prev = slope
			}
		})
	}
}

func TestNewFrontierTieOrder(t *testing.T) {
	// equal scores keep input order, so the positive submitted first is
	// consumed first
	f, err := NewFrontier(0, GroupSample{Name: "tied", Samples: []Sample{
		{Score: 0.5, Positive: true},
		{Score: 0.5, Positive: false},
	}})
	if err != nil {
		t.Fatalf("NewFrontier: %v", err)
	}
	if f.items[0].index != 0 || f.items[1].index != 1 {
		t.Fatalf("tie broken out of input order: %+v", f.items)
	}
	if !f.items[0].positive {
		t.Fatal("expected the positive sample ranked first")
	}
}

func TestNewFrontierRejectsNonFiniteScore(t *testing.T) {
	for _, score := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewFrontier(0, GroupSample{Name: "bad", Samples: []Sample{{Score: score}}})
		var merr *MalformedInputError
		if !errors.As(err, &merr) {
			t.Fatalf("score %v: got %v, want MalformedInputError", score, err)
		}
		if merr.Group != "bad" || merr.Index != 0 {
			t.Errorf("score %v: wrong location in %v", score, merr)
		}
	}
}

func TestNewFrontierEmptyGroup(t *testing.T) {
	f, err := NewFrontier(0, GroupSample{Name: "empty"})
	if err != nil {
		t.Fatalf("NewFrontier: %v", err)
	}
	if len(f.Points) != 1 {
		t.Fatalf("got %d points, want the single origin point", len(f.Points))
	}
	if p := f.Points[0]; p.Cost != 0 || p.Utility != 0 {
		t.Fatalf("origin point is %+v", p)
	}
}

func TestThresholdProbsMatchInterpolation(t *testing.T) {
	f, err := NewFrontier(0, mixedGroup())
	if err != nil {
		t.Fatalf("NewFrontier: %v", err)
	}
	for _, m := range []Mixture{
		{Lower: 0, Upper: 1, Weight: 0.25},
		{Lower: 1, Upper: 2, Weight: 0.5},
		{Lower: 2, Upper: 3, Weight: 0.75},
	} {
		probs := f.thresholdProbs(m)
		var cost, util float64
		for i, q := range probs {
			cost += q
			if f.items[i].positive {
				util += q
			}
		}
		exp := f.interpolate(m)
		if math.Abs(cost-exp.Cost) > rateTol || math.Abs(util-exp.Utility) > rateTol {
			t.Errorf("mixture %+v: probs give (cost=%g, util=%g), interpolation gives (%g, %g)",
				m, cost, util, exp.Cost, exp.Utility)
		}
	}
}
