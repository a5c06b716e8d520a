package tokencache

import (
	"context"
	"sync"
	"time"

	"github.com/cargovera/cargovera/internal/clock"
)

type entry struct {
	token     string
	expiresAt time.Time
}

// Memory is an in-process cache suitable for single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	clock   clock.Clock
}

func NewMemory(clk clock.Clock) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		clock:   clk,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.token, true, nil
}

func (m *Memory) Set(_ context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		token:     token,
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}
