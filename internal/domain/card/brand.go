package card

import "strings"

// Brand identifies the card network.
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandUnknown    Brand = ""
)

// prefixRange maps an inclusive numeric prefix range to a brand. Prefixes in
// a range must share the same digit count.
type prefixRange struct {
	low, high int
	digits    int
	brand     Brand
}

// Canonical range table: Visa is prefix 4; Mastercard is 51-55 plus the
// 2221-2720 series introduced in 2017.
var ranges = []prefixRange{
	{low: 4, high: 4, digits: 1, brand: BrandVisa},
	{low: 51, high: 55, digits: 2, brand: BrandMastercard},
	{low: 2221, high: 2720, digits: 4, brand: BrandMastercard},
}

// Detect classifies a card number by its leading digits. Spaces and dashes
// are ignored; anything else non-numeric yields BrandUnknown.
func Detect(number string) Brand {
	digits := normalize(number)
	if digits == "" {
		return BrandUnknown
	}

	for _, r := range ranges {
		if len(digits) < r.digits {
			continue
		}
		prefix := 0
		for _, ch := range digits[:r.digits] {
			prefix = prefix*10 + int(ch-'0')
		}
		if prefix >= r.low && prefix <= r.high {
			return r.brand
		}
	}
	return BrandUnknown
}

func normalize(number string) string {
	var b strings.Builder
	for _, ch := range number {
		switch {
		case ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == ' ' || ch == '-':
			// separators are fine
		default:
			return ""
		}
	}
	return b.String()
}
