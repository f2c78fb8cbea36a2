// Package tracker hosts a manager for concurrent callers and keeps a store in
// sync with it.
package tracker

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/model"
)

// Store persists full snapshots of the tracker state.
type Store interface {
	Save(state model.State) error
	Load() (model.State, error)
}

// Tracker serializes every call into the manager. Reads that leave history
// untouched go through View; everything else goes through Update, which
// persists the new state when fn succeeds.
type Tracker struct {
	mu    sync.Mutex
	m     *manager.Manager
	store Store
	log   zerolog.Logger
}

// Open restores the persisted state into a new manager. A nil store keeps the
// tracker in memory only.
func Open(store Store, log zerolog.Logger, opts ...manager.Option) (*Tracker, error) {
	opts = append([]manager.Option{manager.WithLogger(log)}, opts...)
	m := manager.New(opts...)

	if store != nil {
		state, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
		if err := m.Restore(state); err != nil {
			return nil, err
		}
		log.Debug().Int("items", len(state.Records)).Int("history", len(state.History)).Int("last_id", state.LastID).Msg("state loaded")
	}

	return &Tracker{m: m, store: store, log: log.With().Str("component", "tracker").Logger()}, nil
}

// View runs fn with exclusive access to the manager. fn must not call the
// by-id getters, which record history; use Lookup instead.
func (t *Tracker) View(fn func(m *manager.Manager) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.m)
}

// Update runs fn with exclusive access to the manager and saves a snapshot
// when fn returns nil. A failed save is returned; the in-memory state keeps
// the change.
func (t *Tracker) Update(fn func(m *manager.Manager) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := fn(t.m); err != nil {
		return err
	}
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.m.State()); err != nil {
		t.log.Error().Err(err).Msg("failed to persist state")
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}
