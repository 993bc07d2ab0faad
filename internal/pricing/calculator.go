package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MoneyScale is the number of decimals amounts are rounded to when they
// leave the package.
const MoneyScale int32 = 2

// Line is the priced portion of a line item.
type Line struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent *decimal.Decimal
	DiscountAmount  *decimal.Decimal
}

// Gross is quantity times unit price, before any discount.
func (l Line) Gross() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

func (l Line) Total() decimal.Decimal {
	return LineTotal(l.Quantity, l.UnitPrice, l.DiscountPercent, l.DiscountAmount)
}

// LineTotal prices a single line. The percentage discount is taken off the
// gross amount first, the fixed discount afterwards, and the result never
// drops below zero.
func LineTotal(quantity, unitPrice decimal.Decimal, discountPercent, discountAmount *decimal.Decimal) decimal.Decimal {
	raw := quantity.Mul(unitPrice)
	if discountPercent != nil {
		raw = raw.Sub(raw.Mul(*discountPercent).Div(hundred))
	}
	if discountAmount != nil {
		raw = raw.Sub(*discountAmount)
	}
	if raw.IsNegative() {
		return decimal.Zero
	}
	return raw
}

// Round rounds an amount to MoneyScale decimals, half away from zero.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}
