//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		// Truncate in dependency order
		_, _ = s.pool.Exec(ctx, "TRUNCATE themis_chains CASCADE")
		_, _ = s.pool.Exec(ctx, "TRUNCATE themis_populations CASCADE")
		s.Close()
	})

	return s
}

func testPopulation() *Population {
	return &Population{
		Name:   "integration",
		Source: "integration-test",
		Groups: []engine.GroupSample{
			{Name: "a", Samples: []engine.Sample{
				{Score: 0.9, Positive: true},
				{Score: 0.1, Positive: false},
			}},
			{Name: "b", Samples: []engine.Sample{
				{Score: 0.8, Positive: true},
				{Score: 0.2, Positive: false},
			}},
		},
		Size: 4,
	}
}

func TestCreateAndGetPopulation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	pop := testPopulation()
	if err := s.CreatePopulation(ctx, pop); err != nil {
		t.Fatalf("CreatePopulation failed: %v", err)
	}
	if pop.ID == uuid.Nil {
		t.Fatal("expected non-nil population ID after create")
	}

	got, err := s.GetPopulation(ctx, pop.ID)
	if err != nil {
		t.Fatalf("GetPopulation failed: %v", err)
	}
	if got == nil {
		t.Fatal("population not found after create")
	}
	if got.Name != pop.Name || got.Size != pop.Size || len(got.Groups) != 2 {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	missing, err := s.GetPopulation(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetPopulation(missing) failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for an unknown id")
	}
}

func TestSaveAndGetChain(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	pop := testPopulation()
	if err := s.CreatePopulation(ctx, pop); err != nil {
		t.Fatalf("CreatePopulation failed: %v", err)
	}

	p, err := engine.NewPopulation(pop.Groups)
	if err != nil {
		t.Fatalf("NewPopulation failed: %v", err)
	}
	chain, err := p.BuildChain(ctx)
	if err != nil {
		t.Fatalf("BuildChain failed: %v", err)
	}

	rec := &ChainRecord{PopulationID: pop.ID, Chain: chain, Repairs: chain.Repairs, BuildMs: 3}
	if err := s.SaveChain(ctx, rec); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}
	if rec.ComputedAt.IsZero() {
		t.Error("expected computed_at to be set")
	}

	// saving again replaces the row
	if err := s.SaveChain(ctx, rec); err != nil {
		t.Fatalf("SaveChain upsert failed: %v", err)
	}

	got, err := s.GetChain(ctx, pop.ID)
	if err != nil {
		t.Fatalf("GetChain failed: %v", err)
	}
	if got == nil {
		t.Fatal("chain not found after save")
	}
	if len(got.Chain.Allocations) != len(chain.Allocations) {
		t.Errorf("chain length %d, want %d", len(got.Chain.Allocations), len(chain.Allocations))
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Populations != 1 || stats.Chains != 1 {
		t.Errorf("stats %+v, want 1 population and 1 chain", stats)
	}
}

func TestDeletePopulation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	pop := testPopulation()
	if err := s.CreatePopulation(ctx, pop); err != nil {
		t.Fatalf("CreatePopulation failed: %v", err)
	}
	if err := s.DeletePopulation(ctx, pop.ID); err != nil {
		t.Fatalf("DeletePopulation failed: %v", err)
	}
	got, err := s.GetPopulation(ctx, pop.ID)
	if err != nil {
		t.Fatalf("GetPopulation failed: %v", err)
	}
	if got != nil {
		t.Error("population still present after delete")
	}
}
