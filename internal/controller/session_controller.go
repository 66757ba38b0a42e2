package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/internal/domain/transaction"
	"github.com/pasarela/checkout/internal/gateway"
	"github.com/pasarela/checkout/internal/infrastructure/observability"
	"github.com/pasarela/checkout/internal/poller"
	"github.com/pasarela/checkout/internal/session"
)

// Catalog proxies the backend's product list.
type Catalog interface {
	Products(ctx context.Context) ([]cart.Product, error)
}

// Submitter prepares the gateway hand-off.
type Submitter interface {
	Prepare(ctx context.Context, req gateway.SubmitRequest) (*gateway.Submission, error)
}

// ResultPoller resolves payment outcomes after the gateway returns.
type ResultPoller interface {
	Start(ctx context.Context, sessionID string, params poller.ReturnParams) error
	Stop(sessionID string)
}

// RecordStore persists transaction records durably.
type RecordStore interface {
	Upsert(ctx context.Context, rec *transaction.Record) error
}

// SessionController exposes the checkout flow over HTTP: session lifecycle,
// cart mutation, step transitions, payment hand-off and result resolution.
type SessionController struct {
	sessions *session.Manager
	catalog  Catalog
	gateway  Submitter
	poller   ResultPoller
	records  RecordStore
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewSessionController(
	sessions *session.Manager,
	catalog Catalog,
	gw Submitter,
	rp ResultPoller,
	records RecordStore,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *SessionController {
	return &SessionController{
		sessions: sessions,
		catalog:  catalog,
		gateway:  gw,
		poller:   rp,
		records:  records,
		metrics:  metrics,
		logger:   logger,
	}
}

// Products proxies the backend catalog.
func (c *SessionController) Products(w http.ResponseWriter, r *http.Request) {
	products, err := c.catalog.Products(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []cart.Product{}
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: products})
}

// Create starts a new checkout session.
func (c *SessionController) Create(w http.ResponseWriter, r *http.Request) {
	state, err := c.sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(state))
}

// Get returns the current session state.
func (c *SessionController) Get(w http.ResponseWriter, r *http.Request) {
	state, err := c.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// Reset is the "new payment" action: stop any polling, drop the whole
// session and start over from product selection.
func (c *SessionController) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c.poller.Stop(id)

	state, err := c.sessions.Reset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// AddItem adds a product to the cart, or increments its quantity.
func (c *SessionController) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		return s.Cart.AddItem(cart.Product{
			ID:          req.ID,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.Price,
			Stock:       req.Stock,
		})
	})
	if err != nil {
		writeError(w, err)
		return
	}
	c.metrics.CartMutationsTotal.WithLabelValues("add").Inc()
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// UpdateQuantity sets the quantity for a cart item; zero or less removes it.
func (c *SessionController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	productID := chi.URLParam(r, "productID")
	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		return s.Cart.UpdateQuantity(productID, req.Quantity)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	c.metrics.CartMutationsTotal.WithLabelValues("update_quantity").Inc()
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// RemoveItem deletes a product from the cart.
func (c *SessionController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		return s.Cart.RemoveItem(productID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	c.metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// ClearCart empties the cart.
func (c *SessionController) ClearCart(w http.ResponseWriter, r *http.Request) {
	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		s.Cart.Clear()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	c.metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// SaveForms stores the customer/delivery/card drafts. Only the sections
// present in the request are replaced.
func (c *SessionController) SaveForms(w http.ResponseWriter, r *http.Request) {
	var req FormsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		if req.Customer != nil {
			s.Flow.Customer = *req.Customer
		}
		if req.Delivery != nil {
			s.Flow.Delivery = *req.Delivery
		}
		if req.Card != nil {
			s.Flow.Card = *req.Card
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// Step transitions the flow to the requested step, forward or back.
func (c *SessionController) Step(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var from checkout.Step
	to := checkout.Step(req.Step)
	state, err := c.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(s *session.State) error {
		from = s.Flow.Step
		return s.Flow.TransitionTo(to, s.Cart.IsEmpty())
	})
	if err != nil {
		c.metrics.StepTransitionsTotal.WithLabelValues(from.String(), to.String(), "rejected").Inc()
		writeError(w, err)
		return
	}
	c.metrics.StepTransitionsTotal.WithLabelValues(from.String(), to.String(), "ok").Inc()
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// TryAgain rewinds a finished attempt to the summary, keeping cart and
// drafts for another go.
func (c *SessionController) TryAgain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c.poller.Stop(id)

	state, err := c.sessions.Update(r.Context(), id, func(s *session.State) error {
		s.LastError = ""
		return s.Flow.TryAgain()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// Pay prepares the gateway hand-off for the current session: generates the
// reference, obtains the integrity signature, stores the pending record and
// moves the flow to processing. The response carries the redirect URL; the
// actual navigation belongs to the browser and cannot be taken back.
func (c *SessionController) Pay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := c.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if state.Flow.Step != checkout.StepSummary {
		writeError(w, domainErrors.NewDomainError(
			"invalid_transition",
			"payment can only be submitted from the summary step",
			domainErrors.ErrInvalidStepTransition,
		))
		return
	}
	if state.Cart.IsEmpty() {
		writeError(w, domainErrors.ErrCartEmpty)
		return
	}

	sub, err := c.gateway.Prepare(r.Context(), gateway.SubmitRequest{
		AmountInCents: state.Cart.Fees.TotalAmount,
		CustomerEmail: state.Flow.Customer.Email,
	})
	if err != nil {
		c.metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	// The pending record is persisted before the redirect URL is handed
	// out, so the attempt is recoverable even if the browser never returns.
	state, err = c.sessions.Update(r.Context(), id, func(s *session.State) error {
		if err := s.Flow.TransitionTo(checkout.StepProcessing, s.Cart.IsEmpty()); err != nil {
			return err
		}
		s.Transaction = sub.Record
		s.LastError = ""
		return nil
	})
	if err != nil {
		c.metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		writeError(w, err)
		return
	}

	if err := c.records.Upsert(r.Context(), sub.Record); err != nil {
		c.logger.Error().Err(err).Str("reference", sub.Reference).Msg("persisting pending record failed")
	}

	c.metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, PayResponse{
		Reference:   sub.Reference,
		RedirectURL: sub.RedirectURL,
	})
}

// Result handles the browser's return from the gateway: moves the flow to
// the result step and starts polling for the authoritative status. Accepts
// the return parameters either as JSON body or as query string, matching
// what the gateway appends to the redirect.
func (c *SessionController) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResultRequest
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
	} else {
		q := r.URL.Query()
		req = ResultRequest{
			ID:        q.Get("id"),
			Reference: q.Get("reference"),
			Status:    q.Get("status"),
		}
	}

	state, err := c.sessions.Update(r.Context(), id, func(s *session.State) error {
		if s.Flow.Step == checkout.StepResult {
			// Page reload: already at the result, just re-arm polling.
			return nil
		}
		return s.Flow.TransitionTo(checkout.StepResult, s.Cart.IsEmpty())
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := c.poller.Start(r.Context(), id, poller.ReturnParams{
		GatewayTransactionID: req.ID,
		Reference:            req.Reference,
		Status:               req.Status,
	}); err != nil {
		writeError(w, err)
		return
	}

	// Polling may already have updated the session (the no-reference case
	// resolves synchronously), so re-read before answering.
	state, err = c.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}
