package session

import (
	"encoding/json"
	"time"

	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
	"github.com/pasarela/checkout/internal/domain/transaction"
)

// State is the whole checkout session: cart, flow (step plus form drafts)
// and the last transaction attempt. It is persisted as a single JSON blob
// per session and rehydrated through Normalize, which is the only place
// defaults are applied.
type State struct {
	ID          string              `json:"id"`
	Cart        *cart.Cart          `json:"cart"`
	Flow        checkout.Flow       `json:"flow"`
	Transaction *transaction.Record `json:"transaction,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewState creates a fresh session in its default shape.
func NewState(id string, policy cart.FeePolicy) *State {
	now := time.Now()
	return &State{
		ID:        id,
		Cart:      cart.New(policy),
		Flow:      checkout.NewFlow(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize applies defaults exactly once, at the deserialization boundary.
// Missing or malformed pieces fall back to the documented default shape;
// call sites never re-default fields ad hoc.
func (s *State) Normalize(policy cart.FeePolicy) {
	if s.Cart == nil {
		s.Cart = cart.New(policy)
	} else {
		s.Cart.SetPolicy(policy)
	}
	if !s.Flow.Step.Valid() {
		s.Flow = checkout.NewFlow()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	// The cart guard holds after every hydration too: a session persisted
	// mid-flow whose cart was cleared externally lands back at step one.
	s.Flow.EnforceCartGuard(s.Cart.IsEmpty())
}

// Marshal serializes the session for the storage port.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState deserializes and normalizes a persisted session blob. A
// corrupt blob yields (nil, error); the caller decides whether to fall back
// to the default shape.
func UnmarshalState(blob []byte, policy cart.FeePolicy) (*State, error) {
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, err
	}
	s.Normalize(policy)
	return &s, nil
}
