package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
)

// Population is a stored allocation problem: named groups of scored,
// labeled samples.
type Population struct {
	ID     uuid.UUID            `json:"population_id"`
	Name   string               `json:"name"`
	Source string               `json:"source,omitempty"`
	Groups []engine.GroupSample `json:"groups"`
	Size   int                  `json:"size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChainRecord is a computed chain persisted alongside its population.
type ChainRecord struct {
	PopulationID uuid.UUID     `json:"population_id"`
	Chain        *engine.Chain `json:"chain"`
	Repairs      int           `json:"repairs"`
	BuildMs      int64         `json:"build_ms"`
	ComputedAt   time.Time     `json:"computed_at"`
}

type PopulationFilter struct {
	Source string
	Limit  int
	Offset int
}

type Stats struct {
	Populations int     `json:"populations"`
	Chains      int     `json:"chains"`
	TotalSize   int64   `json:"total_size"`
	AvgBuildMs  float64 `json:"avg_build_ms"`
}

type Store interface {
	CreatePopulation(ctx context.Context, pop *Population) error
	GetPopulation(ctx context.Context, id uuid.UUID) (*Population, error)
	ListPopulations(ctx context.Context, filter PopulationFilter) ([]*Population, error)
	DeletePopulation(ctx context.Context, id uuid.UUID) error

	SaveChain(ctx context.Context, rec *ChainRecord) error
	GetChain(ctx context.Context, populationID uuid.UUID) (*ChainRecord, error)

	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
