package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/Themis/internal/store"
)

// Mocks
type mockStore struct {
	mu          sync.Mutex
	populations map[uuid.UUID]*store.Population
	chains      map[uuid.UUID]*store.ChainRecord
}

func newMockStore() *mockStore {
	return &mockStore{
		populations: make(map[uuid.UUID]*store.Population),
		chains:      make(map[uuid.UUID]*store.ChainRecord),
	}
}

func (m *mockStore) CreatePopulation(_ context.Context, p *store.Population) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.populations[p.ID] = p
	return nil
}

func (m *mockStore) GetPopulation(_ context.Context, id uuid.UUID) (*store.Population, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.populations[id], nil
}

func (m *mockStore) ListPopulations(_ context.Context, _ store.PopulationFilter) ([]*store.Population, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Population
	for _, p := range m.populations {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockStore) DeletePopulation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.populations[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.populations, id)
	return nil
}

func (m *mockStore) SaveChain(_ context.Context, rec *store.ChainRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ComputedAt = time.Now()
	m.chains[rec.PopulationID] = rec
	return nil
}

func (m *mockStore) GetChain(_ context.Context, populationID uuid.UUID) (*store.ChainRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chains[populationID], nil
}

func (m *mockStore) GetStats(_ context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &store.Stats{Populations: len(m.populations), Chains: len(m.chains)}, nil
}

func (m *mockStore) Close() error { return nil }

type mockHermes struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockHermes) Publish(subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockHermes) Subscribe(_ string, _ func(string, []byte)) error { return nil }
func (m *mockHermes) Close()                                           {}

func (m *mockHermes) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subjects...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() (http.Handler, *mockStore, *mockHermes) {
	s := newMockStore()
	h := &mockHermes{}
	opts := Options{MaxPopulationSize: 1000, ChainTimeout: time.Minute, AdminToken: "test-token"}
	return NewRouter(s, h, opts, discardLogger()), s, h
}
