package pricing

import "github.com/shopspring/decimal"

// Totals is the money summary shared by quotations and invoices.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Aggregate folds lines into unrounded totals with no tax applied.
func Aggregate(lines []Line) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, line := range lines {
		gross := line.Gross()
		subtotal = subtotal.Add(gross)
		discount = discount.Add(gross.Sub(line.Total()))
	}
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      decimal.Zero,
		Total:          clamp(subtotal.Sub(discount)),
	}
}

// AggregateRounded folds lines the way documents store them: every line
// is rounded first, so the header discount and subtotal equal the sums of
// the line values.
func AggregateRounded(lines []Line) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, line := range lines {
		gross := Round(line.Gross())
		subtotal = subtotal.Add(gross)
		discount = discount.Add(gross.Sub(Round(line.Total())))
	}
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      decimal.Zero,
		Total:          clamp(subtotal.Sub(discount)),
	}
}

// WithTax returns a copy carrying the given exclusive tax amount.
func (t Totals) WithTax(tax decimal.Decimal) Totals {
	t.TaxAmount = tax
	t.Total = clamp(t.Subtotal.Sub(t.DiscountAmount).Add(tax))
	return t
}

// Rounded rounds every component and derives the total from the rounded
// parts so total == subtotal - discount_amount + tax_amount holds exactly.
func (t Totals) Rounded() Totals {
	out := Totals{
		Subtotal:       Round(t.Subtotal),
		DiscountAmount: Round(t.DiscountAmount),
		TaxAmount:      Round(t.TaxAmount),
	}
	out.Total = clamp(out.Subtotal.Sub(out.DiscountAmount).Add(out.TaxAmount))
	return out
}

func clamp(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
