package checkout

import (
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

// CustomerInfo is the buyer contact draft collected at the payment-info step.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DeliveryInfo is the shipping draft collected at the payment-info step.
type DeliveryInfo struct {
	Address        string `json:"address"`
	City           string `json:"city"`
	Department     string `json:"department"`
	PostalCode     string `json:"postal_code"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
}

// CardInfo is the card-entry draft. Only shape is validated here; the card
// itself is collected by the hosted payment page, never charged locally.
type CardInfo struct {
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	ExpiryMMYY string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// Validate checks the customer draft field by field.
func (c CustomerInfo) Validate() error {
	if err := requireLength("first_name", c.FirstName, 2, 50); err != nil {
		return err
	}
	if err := requireLength("last_name", c.LastName, 2, 50); err != nil {
		return err
	}
	if !validEmail(c.Email) {
		return domainErrors.NewValidationError("email", "must be a valid email address")
	}
	if !validPhone(c.Phone) {
		return domainErrors.NewValidationError("phone", "must have at least 10 digits")
	}
	return nil
}

// Validate checks the delivery draft field by field.
func (d DeliveryInfo) Validate() error {
	if err := requireLength("address", d.Address, 5, 100); err != nil {
		return err
	}
	if err := requireLength("city", d.City, 2, 50); err != nil {
		return err
	}
	if err := requireLength("department", d.Department, 2, 50); err != nil {
		return err
	}
	if !validPostalCode(d.PostalCode) {
		return domainErrors.NewValidationError("postal_code", "must be 5 or 6 digits")
	}
	if err := requireLength("recipient_name", d.RecipientName, 2, 100); err != nil {
		return err
	}
	if !validPhone(d.RecipientPhone) {
		return domainErrors.NewValidationError("recipient_phone", "must have at least 10 digits")
	}
	return nil
}

// Validate checks the card draft field by field.
func (c CardInfo) Validate() error {
	digits := digitsOnly(c.Number)
	if len(digits) < 13 || len(digits) > 19 {
		return domainErrors.NewValidationError("number", "must have 13 to 19 digits")
	}
	if err := requireLength("holder", c.Holder, 2, 100); err != nil {
		return err
	}
	if !validExpiry(c.ExpiryMMYY, time.Now()) {
		return domainErrors.NewValidationError("expiry", "must be MM/YY and not in the past")
	}
	if len(c.CVV) < 3 || len(c.CVV) > 4 || digitsOnly(c.CVV) != c.CVV {
		return domainErrors.NewValidationError("cvv", "must be 3 or 4 digits")
	}
	return nil
}

func requireLength(field, value string, min, max int) error {
	v := strings.TrimSpace(value)
	if len(v) < min || len(v) > max {
		return domainErrors.NewValidationError(field, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+" characters")
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(email, " \t")
}

func validPhone(phone string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	count := 0
	for _, ch := range trimmed {
		switch {
		case ch >= '0' && ch <= '9':
			count++
		case ch == ' ' || ch == '-':
		default:
			return false
		}
	}
	return count >= 10
}

func validPostalCode(code string) bool {
	if len(code) < 5 || len(code) > 6 {
		return false
	}
	return digitsOnly(code) == code
}

func validExpiry(expiry string, now time.Time) bool {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	year += 2000
	if year > now.Year() {
		return true
	}
	return year == now.Year() && month >= int(now.Month())
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
