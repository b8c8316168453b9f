package store

import (
	"context"
	"sync"

	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

// Memory keeps snapshots in process. Used when no DATABASE_URL is set and
// in tests.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]snapshot
}

type snapshot struct {
	settings host.Settings
	state    roster.State
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]snapshot)}
}

func (m *Memory) SaveSnapshot(ctx context.Context, code string, settings host.Settings, s roster.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[code] = snapshot{settings: settings, state: s.Clone()}
	return nil
}

func (m *Memory) LoadSnapshot(ctx context.Context, code string) (host.Settings, roster.State, error) {
	if err := ctx.Err(); err != nil {
		return host.Settings{}, roster.State{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[code]
	if !ok {
		return host.Settings{}, roster.State{}, host.ErrNoSnapshot
	}
	return snap.settings, snap.state.Clone(), nil
}

func (m *Memory) Close() error { return nil }
