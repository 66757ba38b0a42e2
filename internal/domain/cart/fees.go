package cart

// Fees is the breakdown recomputed on every cart mutation. All values are
// non-negative amounts in minor units of a single currency.
type Fees struct {
	ProductAmount int64 `json:"product_amount"`
	BaseFee       int64 `json:"base_fee"`
	DeliveryFee   int64 `json:"delivery_fee"`
	TotalAmount   int64 `json:"total_amount"`
}

// FeePolicy holds the fixed fee constants and the free-shipping threshold.
type FeePolicy struct {
	BaseFeeCents          int64
	DeliveryFeeCents      int64
	FreeShippingThreshold int64
}

// DefaultFeePolicy returns the standard fee constants.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		BaseFeeCents:          2500,
		DeliveryFeeCents:      5000,
		FreeShippingThreshold: 50000,
	}
}

// Breakdown computes the fee breakdown for a given product amount. Delivery
// is free once the product amount reaches the threshold; the base fee always
// applies. An empty cart yields a zero total rather than fees on nothing.
func (p FeePolicy) Breakdown(productAmount int64) Fees {
	if productAmount <= 0 {
		return Fees{}
	}
	delivery := p.DeliveryFeeCents
	if productAmount >= p.FreeShippingThreshold {
		delivery = 0
	}
	return Fees{
		ProductAmount: productAmount,
		BaseFee:       p.BaseFeeCents,
		DeliveryFee:   delivery,
		TotalAmount:   productAmount + p.BaseFeeCents + delivery,
	}
}
