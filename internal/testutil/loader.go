package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/reactmesh/model"
	"github.com/hupe1980/reactmesh/model/provider"
)

// MockProvider is the provider prefix served by MockLoader.
const MockProvider = "mock"

// MockLoader wraps a provider registry whose "mock" prefix returns the given
// model and records every construction.
type MockLoader struct {
	*provider.Registry

	mu    sync.Mutex
	names []string
}

// NewMockLoader serves m for any "mock:<name>" identifier.
func NewMockLoader(m model.Model) *MockLoader {
	l := &MockLoader{Registry: provider.NewRegistry()}
	l.Register(MockProvider, func(_ context.Context, name string) (model.Model, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.names = append(l.names, name)
		return m, nil
	})
	return l
}

// Constructions returns the model segments the constructor was invoked with.
func (l *MockLoader) Constructions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}
