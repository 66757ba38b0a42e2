package card

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		name   string
		number string
		want   Brand
	}{
		{"visa", "4111111111111111", BrandVisa},
		{"visa with spaces", "4111 1111 1111 1111", BrandVisa},
		{"mastercard 51", "5105105105105100", BrandMastercard},
		{"mastercard 55", "5555555555554444", BrandMastercard},
		{"mastercard 2221 low bound", "2221000000000009", BrandMastercard},
		{"mastercard 2720 high bound", "2720990000000000", BrandMastercard},
		{"below 2-series range", "2220990000000000", BrandUnknown},
		{"above 2-series range", "2721000000000000", BrandUnknown},
		{"56 is not mastercard", "5600000000000000", BrandUnknown},
		{"amex not classified", "378282246310005", BrandUnknown},
		{"empty", "", BrandUnknown},
		{"letters", "4111abcd", BrandUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.number); got != tc.want {
				t.Errorf("Detect(%q) = %q, want %q", tc.number, got, tc.want)
			}
		})
	}
}
