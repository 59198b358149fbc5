package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/MikeSquared-Agency/Themis/internal/store"
)

// MockStore implements store.Store for failure injection
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreatePopulation(ctx context.Context, p *store.Population) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) GetPopulation(ctx context.Context, id uuid.UUID) (*store.Population, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Population), args.Error(1)
}

func (m *MockStore) ListPopulations(ctx context.Context, f store.PopulationFilter) ([]*store.Population, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Population), args.Error(1)
}

func (m *MockStore) DeletePopulation(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) SaveChain(ctx context.Context, rec *store.ChainRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockStore) GetChain(ctx context.Context, populationID uuid.UUID) (*store.ChainRecord, error) {
	args := m.Called(ctx, populationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ChainRecord), args.Error(1)
}

func (m *MockStore) GetStats(ctx context.Context) (*store.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Stats), args.Error(1)
}

func (m *MockStore) Close() error { return nil }

func TestStoreFailuresSurfaceAs500(t *testing.T) {
	ms := &MockStore{}
	boom := errors.New("connection reset")
	ms.On("GetPopulation", mock.Anything, mock.Anything).Return(nil, boom)
	ms.On("ListPopulations", mock.Anything, mock.Anything).Return(nil, boom)
	ms.On("GetChain", mock.Anything, mock.Anything).Return(nil, boom)
	ms.On("GetStats", mock.Anything).Return(nil, boom)

	router := NewRouter(ms, &mockHermes{}, Options{}, discardLogger())
	id := uuid.New().String()

	paths := []string{
		"/api/v1/populations/" + id,
		"/api/v1/populations",
		"/api/v1/populations/" + id + "/allocations/1",
		"/api/v1/populations/" + id + "/chain",
		"/api/v1/stats",
	}
	for _, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code, "path %s", path)
		assert.Contains(t, w.Body.String(), "connection reset", "path %s", path)
	}
	ms.AssertExpectations(t)
}
