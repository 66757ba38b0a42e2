// Package testutil provides hand-rolled mocks and fixtures shared by
// handler-level tests. Each mock exposes overridable Func fields; the zero
// value behaves as a harmless no-op.
package testutil

import (
	"context"

	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/transaction"
	"github.com/pasarela/checkout/internal/gateway"
	"github.com/pasarela/checkout/internal/poller"
)

// MockCatalog implements the controller's Catalog interface.
type MockCatalog struct {
	ProductsFunc func(ctx context.Context) ([]cart.Product, error)
}

func (m *MockCatalog) Products(ctx context.Context) ([]cart.Product, error) {
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx)
	}
	return nil, nil
}

// MockSubmitter implements the controller's Submitter interface.
type MockSubmitter struct {
	PrepareFunc func(ctx context.Context, req gateway.SubmitRequest) (*gateway.Submission, error)
}

func (m *MockSubmitter) Prepare(ctx context.Context, req gateway.SubmitRequest) (*gateway.Submission, error) {
	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, req)
	}
	rec, err := transaction.NewRecord("TX_0_mocked", req.AmountInCents, "COP")
	if err != nil {
		return nil, err
	}
	return &gateway.Submission{
		Reference:   rec.Reference,
		RedirectURL: "https://gateway.example.com/p/?reference=" + rec.Reference,
		Record:      rec,
	}, nil
}

// MockResultPoller implements the controller's ResultPoller interface.
type MockResultPoller struct {
	StartFunc  func(ctx context.Context, sessionID string, params poller.ReturnParams) error
	StopFunc   func(sessionID string)
	StartCalls []poller.ReturnParams
	StopCalls  []string
}

func (m *MockResultPoller) Start(ctx context.Context, sessionID string, params poller.ReturnParams) error {
	m.StartCalls = append(m.StartCalls, params)
	if m.StartFunc != nil {
		return m.StartFunc(ctx, sessionID, params)
	}
	return nil
}

func (m *MockResultPoller) Stop(sessionID string) {
	m.StopCalls = append(m.StopCalls, sessionID)
	if m.StopFunc != nil {
		m.StopFunc(sessionID)
	}
}

// MockRecordStore implements the RecordStore interfaces of controller and
// poller.
type MockRecordStore struct {
	UpsertFunc func(ctx context.Context, rec *transaction.Record) error
	Upserts    []*transaction.Record
}

func (m *MockRecordStore) Upsert(ctx context.Context, rec *transaction.Record) error {
	m.Upserts = append(m.Upserts, rec)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, rec)
	}
	return nil
}
