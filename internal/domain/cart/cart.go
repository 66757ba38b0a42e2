package cart

import (
	"fmt"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

// Product is a catalog entry as served by the product service.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price"`
	Stock       int    `json:"stock"`
}

// Item is a product plus the quantity selected.
type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns the line total for this item.
func (i Item) Subtotal() int64 {
	return i.Product.PriceCents * int64(i.Quantity)
}

// Cart holds the selected products and the fee breakdown computed from them.
// Every mutation recomputes Fees in the same step, so the two are never
// observed out of sync.
type Cart struct {
	Items  []Item `json:"items"`
	Fees   Fees   `json:"fees"`
	policy FeePolicy
}

// New creates an empty cart governed by the given fee policy.
func New(policy FeePolicy) *Cart {
	c := &Cart{policy: policy}
	c.recompute()
	return c
}

// SetPolicy replaces the fee policy and recomputes the breakdown. Used after
// deserialization, where the policy is not part of the persisted shape.
func (c *Cart) SetPolicy(policy FeePolicy) {
	c.policy = policy
	c.recompute()
}

// AddItem increments the quantity if the product is already present,
// otherwise inserts it with quantity 1. Adding a product with zero stock is
// rejected; the quantity never exceeds the product's stock.
func (c *Cart) AddItem(p Product) error {
	if p.Stock <= 0 {
		return domainErrors.ErrOutOfStock
	}
	defer c.recompute()

	for idx := range c.Items {
		if c.Items[idx].Product.ID == p.ID {
			if c.Items[idx].Quantity >= p.Stock {
				return domainErrors.ErrOutOfStock
			}
			c.Items[idx].Quantity++
			return nil
		}
	}
	c.Items = append(c.Items, Item{Product: p, Quantity: 1})
	return nil
}

// UpdateQuantity sets the quantity for a product. A quantity of zero or less
// removes the item; quantities above the product's stock are clamped to it.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	defer c.recompute()

	for idx := range c.Items {
		if c.Items[idx].Product.ID != productID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return nil
		}
		if quantity > c.Items[idx].Product.Stock {
			quantity = c.Items[idx].Product.Stock
		}
		c.Items[idx].Quantity = quantity
		return nil
	}
	return fmt.Errorf("update quantity for %s: %w", productID, domainErrors.ErrProductNotInCart)
}

// RemoveItem deletes a product from the cart.
func (c *Cart) RemoveItem(productID string) error {
	defer c.recompute()

	for idx := range c.Items {
		if c.Items[idx].Product.ID == productID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove %s: %w", productID, domainErrors.ErrProductNotInCart)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
	c.recompute()
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ProductAmount returns the sum of all line totals.
func (c *Cart) ProductAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c *Cart) recompute() {
	c.Fees = c.policy.Breakdown(c.ProductAmount())
}
