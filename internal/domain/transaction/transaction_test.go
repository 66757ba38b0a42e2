package transaction

import (
	"testing"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("TX_1_abc", 47_500, "COP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusPending {
		t.Errorf("expected pending, got %s", r.Status)
	}
	if r.AmountCents != 47_500 {
		t.Errorf("expected amount 47500, got %d", r.AmountCents)
	}
}

func TestNewRecord_Invalid(t *testing.T) {
	if _, err := NewRecord("", 100, "COP"); err != domainErrors.ErrNoReference {
		t.Errorf("expected ErrNoReference, got %v", err)
	}
	if _, err := NewRecord("TX_1_abc", 0, "COP"); err == nil {
		t.Error("expected error for zero amount")
	}
}

func TestResolve_TerminalIsSticky(t *testing.T) {
	r, _ := NewRecord("TX_1_abc", 100, "COP")

	if err := r.Resolve("gw-1", StatusApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Same outcome again is a no-op.
	if err := r.Resolve("gw-1", StatusApproved); err != nil {
		t.Errorf("repeated identical resolve should be a no-op, got %v", err)
	}
	// A different terminal outcome must be rejected.
	if err := r.Resolve("gw-1", StatusDeclined); err != domainErrors.ErrCheckoutTerminal {
		t.Errorf("expected ErrCheckoutTerminal, got %v", err)
	}
	if r.Status != StatusApproved {
		t.Errorf("status changed after terminal: %s", r.Status)
	}
}

func TestIsTerminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusPending:  false,
		StatusApproved: true,
		StatusDeclined: true,
		StatusFailed:   true,
		StatusError:    true,
	} {
		if s.IsTerminal() != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, !want, want)
		}
	}
}

func TestNormalizeGatewayStatus(t *testing.T) {
	cases := map[string]Status{
		"APPROVED":   StatusApproved,
		"approved":   StatusApproved,
		"DECLINED":   StatusDeclined,
		"FAILED":     StatusFailed,
		"VOIDED":     StatusFailed,
		"PENDING":    StatusPending,
		"PROCESSING": StatusPending,
		"":           StatusPending,
		"WHATEVER":   StatusError,
	}
	for in, want := range cases {
		if got := NormalizeGatewayStatus(in); got != want {
			t.Errorf("NormalizeGatewayStatus(%q) = %s, want %s", in, got, want)
		}
	}
}
