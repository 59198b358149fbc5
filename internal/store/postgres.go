package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreatePopulation(ctx context.Context, pop *Population) error {
	groupsJSON, err := json.Marshal(pop.Groups)
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO themis_populations (name, source, groups, size)
		VALUES ($1, $2, $3, $4)
		RETURNING population_id, created_at, updated_at`,
		pop.Name, pop.Source, groupsJSON, pop.Size,
	).Scan(&pop.ID, &pop.CreatedAt, &pop.UpdatedAt)
}

func (s *PostgresStore) GetPopulation(ctx context.Context, id uuid.UUID) (*Population, error) {
	p := &Population{}
	var groupsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT population_id, name, source, groups, size, created_at, updated_at
		FROM themis_populations WHERE population_id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Source, &groupsJSON, &p.Size, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(groupsJSON, &p.Groups); err != nil {
		return nil, fmt.Errorf("unmarshal groups: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPopulations(ctx context.Context, filter PopulationFilter) ([]*Population, error) {
	query := `SELECT population_id, name, source, size, created_at, updated_at
		FROM themis_populations WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Source != "" {
		n++
		query += fmt.Sprintf(" AND source = $%d", n)
		args = append(args, filter.Source)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// listing omits the sample payloads; GetPopulation hydrates one row
	var pops []*Population
	for rows.Next() {
		p := &Population{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Source, &p.Size, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pops = append(pops, p)
	}
	return pops, rows.Err()
}

func (s *PostgresStore) DeletePopulation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM themis_populations WHERE population_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SaveChain(ctx context.Context, rec *ChainRecord) error {
	chainJSON, err := json.Marshal(rec.Chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO themis_chains (population_id, chain, repairs, build_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (population_id) DO UPDATE
		SET chain = EXCLUDED.chain, repairs = EXCLUDED.repairs,
			build_ms = EXCLUDED.build_ms, computed_at = now()
		RETURNING computed_at`,
		rec.PopulationID, chainJSON, rec.Repairs, rec.BuildMs,
	).Scan(&rec.ComputedAt)
}

func (s *PostgresStore) GetChain(ctx context.Context, populationID uuid.UUID) (*ChainRecord, error) {
	rec := &ChainRecord{}
	var chainJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT population_id, chain, repairs, build_ms, computed_at
		FROM themis_chains WHERE population_id = $1`, populationID,
	).Scan(&rec.PopulationID, &chainJSON, &rec.Repairs, &rec.BuildMs, &rec.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Chain = &engine.Chain{}
	if err := json.Unmarshal(chainJSON, rec.Chain); err != nil {
		return nil, fmt.Errorf("unmarshal chain: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM themis_populations),
			(SELECT COALESCE(SUM(size), 0) FROM themis_populations),
			(SELECT COUNT(*) FROM themis_chains),
			(SELECT COALESCE(AVG(build_ms), 0) FROM themis_chains)`,
	).Scan(&st.Populations, &st.TotalSize, &st.Chains, &st.AvgBuildMs)
	if err != nil {
		return nil, err
	}
	return st, nil
}
