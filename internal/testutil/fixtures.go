package testutil

import (
	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
)

// Product returns a catalog product fixture.
func Product(id string, priceCents int64, stock int) cart.Product {
	return cart.Product{
		ID:          id,
		Name:        "Product " + id,
		Description: "fixture product",
		PriceCents:  priceCents,
		Stock:       stock,
	}
}

// ValidCustomer returns a customer draft that passes form validation.
func ValidCustomer() checkout.CustomerInfo {
	return checkout.CustomerInfo{
		FirstName: "Ana",
		LastName:  "Gomez",
		Email:     "ana.gomez@example.com",
		Phone:     "3001234567",
	}
}

// ValidDelivery returns a delivery draft that passes form validation.
func ValidDelivery() checkout.DeliveryInfo {
	return checkout.DeliveryInfo{
		Address:        "Calle 12 #34-56",
		City:           "Bogota",
		Department:     "Cundinamarca",
		PostalCode:     "110111",
		RecipientName:  "Ana Gomez",
		RecipientPhone: "3001234567",
	}
}

// ValidCard returns a card draft that passes form validation. The expiry is
// far enough out to stay valid for the lifetime of this codebase's tests.
func ValidCard() checkout.CardInfo {
	return checkout.CardInfo{
		Number:     "4111111111111111",
		Holder:     "ANA GOMEZ",
		ExpiryMMYY: "12/39",
		CVV:        "123",
	}
}
