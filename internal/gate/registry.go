package gate

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
)

// Registry hands out one gate per user. Each gate mirrors its snapshot under
// a user-scoped key prefix so fallbacks never read another user's figures.
type Registry struct {
	mu     sync.Mutex
	params Params
	gates  map[string]*Gate
}

// NewRegistry builds a registry that shares the provider, store, and logger
// across every per-user gate.
func NewRegistry(params Params) (*Registry, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("gate: provider is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("gate: store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("gate: logger is required")
	}
	return &Registry{
		params: params,
		gates:  make(map[string]*Gate),
	}, nil
}

// ForUser returns the caller's gate, creating it on first use.
func (r *Registry) ForUser(userID string) (*Gate, error) {
	if userID == "" {
		return nil, fmt.Errorf("gate: user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gates[userID]; ok {
		return g, nil
	}

	g, err := New(Params{
		Provider: r.params.Provider,
		Store: &prefixStore{
			inner:  r.params.Store,
			prefix: "user:" + userID + ":",
		},
		Logger: r.params.Logger,
	})
	if err != nil {
		return nil, err
	}
	r.gates[userID] = g
	return g, nil
}

// prefixStore namespaces every key so per-user mirrors share one flat store.
type prefixStore struct {
	inner  kvstore.Store
	prefix string
}

func (s *prefixStore) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *prefixStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *prefixStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
