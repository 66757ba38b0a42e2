package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pasarela/checkout/internal/domain/cart"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/rs/zerolog"
)

// Manager owns session lifecycle and is the single mutation entry point.
// Every mutation runs as one atomic step: hydrate, mutate, re-apply the
// cart guard, persist. Concurrent mutations are serialized so partial
// updates are never observable.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	policy  cart.FeePolicy
	logger  zerolog.Logger
}

// NewManager creates a session manager over the given storage port.
func NewManager(storage Storage, policy cart.FeePolicy, logger zerolog.Logger) *Manager {
	return &Manager{
		storage: storage,
		policy:  policy,
		logger:  logger,
	}
}

// Create starts a new session and persists its default shape.
func (m *Manager) Create(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := NewState(uuid.New().String(), m.policy)
	if err := m.persist(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get hydrates a session without mutating it.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx, id)
}

// Update applies fn to the session as one atomic step and persists the
// result. If fn returns an error nothing is persisted and the error is
// returned unchanged.
func (m *Manager) Update(ctx context.Context, id string, fn func(*State) error) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	// Mutation and guard run in the same step, so a cart emptied by fn can
	// never leave the flow stranded past product selection.
	if state.Flow.EnforceCartGuard(state.Cart.IsEmpty()) {
		m.logger.Debug().Str("session_id", id).Msg("cart emptied, forced back to product selection")
	}

	if err := m.persist(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Reset clears the whole session back to its default shape ("new payment").
func (m *Manager) Reset(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete session %s: %w", id, err)
	}
	state := NewState(id, m.policy)
	if err := m.persist(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (m *Manager) load(ctx context.Context, id string) (*State, error) {
	blob, err := m.storage.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	state, err := UnmarshalState(blob, m.policy)
	if err != nil {
		// Corrupt blob: fall back to the default shape rather than failing
		// the whole session.
		m.logger.Warn().Err(err).Str("session_id", id).Msg("corrupt session blob, resetting to defaults")
		return NewState(id, m.policy), nil
	}
	return state, nil
}

func (m *Manager) persist(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now()
	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", state.ID, err)
	}
	if err := m.storage.Save(ctx, state.ID, blob); err != nil {
		return fmt.Errorf("save session %s: %w", state.ID, err)
	}
	return nil
}
