package controller

import (
	"time"

	"github.com/pasarela/checkout/internal/domain/card"
	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
	"github.com/pasarela/checkout/internal/session"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (validation tags, wire field names).
// Detailed business validation (email shape, expiry in the future, ...)
// lives on the domain forms and runs at the step transition.

// AddItemRequest carries the product being added to the cart. The catalog
// is owned by the backend, so the client sends the full product snapshot.
type AddItemRequest struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// UpdateQuantityRequest sets the quantity for a cart item.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// StepRequest asks for a transition to the given checkout step.
type StepRequest struct {
	Step int `json:"step" validate:"required,min=1,max=5"`
}

// FormsRequest saves the customer/delivery/card drafts. Fields are stored
// as-is; they are validated when the flow moves to the summary.
type FormsRequest struct {
	Customer *checkout.CustomerInfo `json:"customer,omitempty"`
	Delivery *checkout.DeliveryInfo `json:"delivery,omitempty"`
	Card     *checkout.CardInfo     `json:"card,omitempty"`
}

// ResultRequest carries the query parameters the gateway appended when it
// redirected the browser back.
type ResultRequest struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// --- Response DTOs ---

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CardSummary is the card draft as echoed back: never the number or CVV,
// only what the summary screen shows.
type CardSummary struct {
	Brand  string `json:"brand"`
	Last4  string `json:"last4"`
	Holder string `json:"holder"`
	Expiry string `json:"expiry"`
}

// SessionResponse is the full session as the client sees it.
type SessionResponse struct {
	ID          string                `json:"id"`
	Step        int                   `json:"step"`
	StepName    string                `json:"step_name"`
	Cart        CartResponse          `json:"cart"`
	Customer    checkout.CustomerInfo `json:"customer"`
	Delivery    checkout.DeliveryInfo `json:"delivery"`
	Card        *CardSummary          `json:"card,omitempty"`
	Transaction *TransactionResponse  `json:"transaction,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CartResponse is the cart with its fee breakdown.
type CartResponse struct {
	Items []cart.Item `json:"items"`
	Fees  cart.Fees   `json:"fees"`
}

// TransactionResponse represents the current payment attempt.
type TransactionResponse struct {
	Reference            string    `json:"reference"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty"`
	Status               string    `json:"status"`
	AmountCents          int64     `json:"amount_cents"`
	Currency             string    `json:"currency"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// PayResponse is the prepared gateway hand-off.
type PayResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

// ProductsResponse wraps the proxied catalog.
type ProductsResponse struct {
	Products []cart.Product `json:"products"`
}

func toSessionResponse(s *session.State) SessionResponse {
	resp := SessionResponse{
		ID:        s.ID,
		Step:      int(s.Flow.Step),
		StepName:  s.Flow.Step.String(),
		Cart:      CartResponse{Items: s.Cart.Items, Fees: s.Cart.Fees},
		Customer:  s.Flow.Customer,
		Delivery:  s.Flow.Delivery,
		LastError: s.LastError,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if resp.Cart.Items == nil {
		resp.Cart.Items = []cart.Item{}
	}
	if number := s.Flow.Card.Number; number != "" {
		last4 := number
		if len(last4) > 4 {
			last4 = last4[len(last4)-4:]
		}
		resp.Card = &CardSummary{
			Brand:  string(card.Detect(number)),
			Last4:  last4,
			Holder: s.Flow.Card.Holder,
			Expiry: s.Flow.Card.ExpiryMMYY,
		}
	}
	if s.Transaction != nil {
		resp.Transaction = &TransactionResponse{
			Reference:            s.Transaction.Reference,
			GatewayTransactionID: s.Transaction.GatewayTransactionID,
			Status:               string(s.Transaction.Status),
			AmountCents:          s.Transaction.AmountCents,
			Currency:             s.Transaction.Currency,
			CreatedAt:            s.Transaction.CreatedAt,
			UpdatedAt:            s.Transaction.UpdatedAt,
		}
	}
	return resp
}
