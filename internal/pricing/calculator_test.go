package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr(v string) *decimal.Decimal {
	out := d(v)
	return &out
}

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		qty      string
		price    string
		percent  *decimal.Decimal
		amount   *decimal.Decimal
		expected string
	}{
		{name: "no discount", qty: "3", price: "100", expected: "300"},
		{name: "percent discount", qty: "3", price: "100", percent: ptr("10"), expected: "270"},
		{name: "amount discount", qty: "2", price: "50", amount: ptr("20"), expected: "80"},
		{name: "percent then amount", qty: "1", price: "200", percent: ptr("50"), amount: ptr("30"), expected: "70"},
		{name: "zero quantity", qty: "0", price: "100", percent: ptr("10"), expected: "0"},
		{name: "discount exceeds gross", qty: "1", price: "10", amount: ptr("25"), expected: "0"},
		{name: "percent above hundred", qty: "1", price: "10", percent: ptr("150"), expected: "0"},
		{name: "fractional quantity", qty: "1.5", price: "80", expected: "120"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineTotal(d(tc.qty), d(tc.price), tc.percent, tc.amount)
			assert.True(t, d(tc.expected).Equal(got), "expected %s got %s", tc.expected, got)
		})
	}
}

func TestLineTotalMatchesPercentFormula(t *testing.T) {
	for _, q := range []int64{1, 2, 7, 13} {
		for _, p := range []string{"0", "9.99", "125.50"} {
			for _, dp := range []string{"0", "12.5", "33", "100"} {
				got := LineTotal(decimal.NewFromInt(q), d(p), ptr(dp), nil)
				expected := decimal.NewFromInt(q).Mul(d(p)).Mul(decimal.NewFromInt(1).Sub(d(dp).Div(hundred)))
				assert.True(t, Round(expected).Equal(Round(got)), "q=%d p=%s dp=%s", q, p, dp)
			}
		}
	}
}

func TestLineTotalNeverNegative(t *testing.T) {
	values := []string{"-5", "0", "0.5", "10", "1000"}
	for _, q := range values {
		for _, p := range values {
			for _, amount := range values {
				got := LineTotal(d(q), d(p), ptr("40"), ptr(amount))
				assert.False(t, got.IsNegative(), "q=%s p=%s amount=%s", q, p, amount)
			}
		}
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "10.13", Round(d("10.125")).StringFixed(2))
	assert.Equal(t, "10.12", Round(d("10.1249")).StringFixed(2))
}
