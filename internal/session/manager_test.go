package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	return NewManager(storage, cart.DefaultFeePolicy(), zerolog.Nop()), storage
}

func TestManager_CreateAndGet(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Cart.IsEmpty())
	assert.Equal(t, checkout.StepProductSelection, got.Flow.Step)
}

func TestManager_GetUnknownSession(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestManager_UpdatePersists(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx)
	require.NoError(t, err)

	_, err = manager.Update(ctx, created.ID, func(s *State) error {
		return s.Cart.AddItem(testProduct("p1", 40_000, 5))
	})
	require.NoError(t, err)

	got, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), got.Cart.ProductAmount())
	assert.Equal(t, int64(47_500), got.Cart.Fees.TotalAmount)
}

func TestManager_UpdateFailureDiscardsChanges(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx)
	require.NoError(t, err)
	_, err = manager.Update(ctx, created.ID, func(s *State) error {
		return s.Cart.AddItem(testProduct("p1", 40_000, 5))
	})
	require.NoError(t, err)

	_, err = manager.Update(ctx, created.ID, func(s *State) error {
		s.Cart.Clear()
		return domainErrors.ErrInvalidInput
	})
	require.ErrorIs(t, err, domainErrors.ErrInvalidInput)

	got, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Cart.IsEmpty(), "failed update must not be persisted")
}

func TestManager_UpdateEnforcesCartGuard(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx)
	require.NoError(t, err)
	_, err = manager.Update(ctx, created.ID, func(s *State) error {
		if err := s.Cart.AddItem(testProduct("p1", 40_000, 5)); err != nil {
			return err
		}
		return s.Flow.TransitionTo(checkout.StepPaymentInfo, s.Cart.IsEmpty())
	})
	require.NoError(t, err)

	// Emptying the cart mid-flow forces the step back in the same update.
	updated, err := manager.Update(ctx, created.ID, func(s *State) error {
		return s.Cart.RemoveItem("p1")
	})
	require.NoError(t, err)
	assert.Equal(t, checkout.StepProductSelection, updated.Flow.Step)
}

func TestManager_Reset(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx)
	require.NoError(t, err)
	_, err = manager.Update(ctx, created.ID, func(s *State) error {
		if err := s.Cart.AddItem(testProduct("p1", 40_000, 5)); err != nil {
			return err
		}
		s.LastError = "something went wrong"
		return nil
	})
	require.NoError(t, err)

	reset, err := manager.Reset(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, reset.ID)
	assert.True(t, reset.Cart.IsEmpty())
	assert.Equal(t, checkout.StepProductSelection, reset.Flow.Step)
	assert.Empty(t, reset.LastError)
	assert.Nil(t, reset.Transaction)
}

func TestManager_CorruptBlobFallsBackToDefaults(t *testing.T) {
	manager, storage := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "sess-corrupt", []byte(`{broken`)))

	got, err := manager.Get(ctx, "sess-corrupt")
	require.NoError(t, err)
	assert.Equal(t, "sess-corrupt", got.ID)
	assert.True(t, got.Cart.IsEmpty())
	assert.Equal(t, checkout.StepProductSelection, got.Flow.Step)
}
