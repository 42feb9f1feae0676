package utils

import (
	"fmt"
	"math"
)

// NotAvailable is shown wherever a value is missing.
const NotAvailable = "N/A"

// FormatRatio renders v with two decimals, or N/A when v is nil, zero or NaN.
func FormatRatio(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatPercent renders a percentage with a sign, e.g. "+12.34%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormatPrice renders a price with its currency code when known.
func FormatPrice(price float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}
