package cart

import (
	"math"

	"storefront-state/internal/domain"
)

const (
	// FreeShippingThreshold is the subtotal above which shipping is free
	FreeShippingThreshold = 50.0
	ShippingFee           = 5.99
	TaxRate               = 0.08
)

// Totals are the derived checkout amounts for a set of lines
type Totals struct {
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals derives count, subtotal, shipping, tax and total from lines.
// Amounts are rounded to cents.
func ComputeTotals(lines []domain.CartLine) Totals {
	t := Totals{
		Count:    count(lines),
		Subtotal: subtotal(lines),
	}
	// An empty cart owes nothing, shipping included
	if t.Count == 0 {
		return t
	}
	if t.Subtotal <= FreeShippingThreshold {
		t.Shipping = ShippingFee
	}
	t.Tax = roundCents(t.Subtotal * TaxRate)
	t.Subtotal = roundCents(t.Subtotal)
	t.Total = roundCents(t.Subtotal + t.Shipping + t.Tax)
	return t
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
