package cart_test

import (
	"testing"

	"github.com/pasarela/checkout/internal/domain/cart"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

func testProduct(id string, price int64, stock int) cart.Product {
	return cart.Product{ID: id, Name: "product " + id, PriceCents: price, Stock: stock}
}

func TestAddItem_InsertsThenIncrements(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	p := testProduct("p1", 10_000, 3)

	if err := c.AddItem(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AddItem(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(c.Items))
	}
	if c.Items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", c.Items[0].Quantity)
	}
}

func TestAddItem_ZeroStockRejected(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())

	err := c.AddItem(testProduct("p1", 10_000, 0))
	if err != domainErrors.ErrOutOfStock {
		t.Errorf("expected ErrOutOfStock, got %v", err)
	}
	if !c.IsEmpty() {
		t.Error("expected cart to stay empty")
	}
}

func TestAddItem_StopsAtStock(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	p := testProduct("p1", 10_000, 2)

	_ = c.AddItem(p)
	_ = c.AddItem(p)
	err := c.AddItem(p)
	if err != domainErrors.ErrOutOfStock {
		t.Errorf("expected ErrOutOfStock at stock limit, got %v", err)
	}
	if c.Items[0].Quantity != 2 {
		t.Errorf("expected quantity clamped at 2, got %d", c.Items[0].Quantity)
	}
}

func TestUpdateQuantity_ZeroRemovesEntry(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	_ = c.AddItem(testProduct("p1", 10_000, 5))

	if err := c.UpdateQuantity("p1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Error("expected item removed at quantity 0")
	}
}

func TestUpdateQuantity_ClampsAtStock(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	_ = c.AddItem(testProduct("p1", 10_000, 4))

	if err := c.UpdateQuantity("p1", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Items[0].Quantity != 4 {
		t.Errorf("expected quantity clamped to 4, got %d", c.Items[0].Quantity)
	}
}

func TestUpdateQuantity_UnknownProduct(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())

	err := c.UpdateQuantity("missing", 1)
	if err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestFees_BelowFreeShippingThreshold(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	_ = c.AddItem(testProduct("p1", 40_000, 1))

	f := c.Fees
	if f.ProductAmount != 40_000 {
		t.Errorf("expected product amount 40000, got %d", f.ProductAmount)
	}
	if f.BaseFee != 2_500 {
		t.Errorf("expected base fee 2500, got %d", f.BaseFee)
	}
	if f.DeliveryFee != 5_000 {
		t.Errorf("expected delivery fee 5000, got %d", f.DeliveryFee)
	}
	if f.TotalAmount != 47_500 {
		t.Errorf("expected total 47500, got %d", f.TotalAmount)
	}
}

func TestFees_FreeShippingAtThreshold(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	_ = c.AddItem(testProduct("p1", 60_000, 1))

	f := c.Fees
	if f.DeliveryFee != 0 {
		t.Errorf("expected free delivery, got %d", f.DeliveryFee)
	}
	if f.TotalAmount != 62_500 {
		t.Errorf("expected total 62500, got %d", f.TotalAmount)
	}
}

func TestFees_TotalIdentityAcrossMutations(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	p1 := testProduct("p1", 12_000, 10)
	p2 := testProduct("p2", 33_000, 10)

	_ = c.AddItem(p1)
	_ = c.AddItem(p2)
	_ = c.UpdateQuantity("p1", 3)
	_ = c.RemoveItem("p2")
	_ = c.AddItem(p2)

	f := c.Fees
	if f.TotalAmount != f.ProductAmount+f.BaseFee+f.DeliveryFee {
		t.Errorf("total identity broken: %+v", f)
	}
	free := f.ProductAmount >= 50_000
	if free != (f.DeliveryFee == 0) {
		t.Errorf("free shipping rule broken: %+v", f)
	}
}

func TestClear_ResetsFees(t *testing.T) {
	c := cart.New(cart.DefaultFeePolicy())
	_ = c.AddItem(testProduct("p1", 40_000, 1))

	c.Clear()
	if c.Fees != (cart.Fees{}) {
		t.Errorf("expected zero fees after clear, got %+v", c.Fees)
	}
}
