package engine

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const (
	tgstID    snowflake.ID = 101
	sdfID     snowflake.ID = 102
	serviceID snowflake.ID = 103
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	out := d(v)
	return &out
}

func catalogRates() []taxdomain.TaxRate {
	return []taxdomain.TaxRate{
		{
			ID:        tgstID,
			Name:      "Goods and Services Tax",
			Code:      "TGST",
			Rate:      d("12"),
			RateType:  taxdomain.RateTypePercentage,
			AppliesTo: pq.StringArray{"accommodation"},
			IsActive:  true,
		},
		{
			ID:                      sdfID,
			Name:                    "Sustainable Development Fee",
			Code:                    "SDF",
			Rate:                    d("100"),
			RateType:                taxdomain.RateTypeFixed,
			AppliesTo:               pq.StringArray{"accommodation"},
			AppliesToForeignersOnly: true,
			IsActive:                true,
		},
		{
			ID:          serviceID,
			Name:        "Service Charge",
			Code:        "SERVICE_CHARGE",
			Rate:        d("10"),
			RateType:    taxdomain.RateTypePercentage,
			AppliesTo:   pq.StringArray{"activity", "tour"},
			IsInclusive: true,
			IsActive:    true,
		},
	}
}

func nationalityExemption(rateID snowflake.ID, codes ...string) taxdomain.TaxExemption {
	return taxdomain.TaxExemption{
		ID:            1,
		TaxRateID:     rateID,
		ExemptionType: taxdomain.ExemptionGuestNationality,
		Conditions:    datatypes.NewJSONType(taxdomain.ExemptionConditions{Nationalities: codes}),
		IsActive:      true,
	}
}

func TestEvaluate_NonMatchingServiceTypeExcludesRate(t *testing.T) {
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeTransport,
		TaxableAmount: d("1000"),
	}, catalogRates(), nil, nil)

	assert.Empty(t, result.Lines)
	assert.True(t, result.TaxAmount.IsZero())
	assert.Equal(t, "untaxed", result.Outcome())
}

func TestEvaluate_AccommodationForDomesticGuest(t *testing.T) {
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("1000"),
		Multiplier:    dp("3"),
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "TGST", result.Lines[0].Code)
	assert.Equal(t, "120.00", result.TaxAmount.StringFixed(2))
}

func TestEvaluate_ForeignerPaysFixedFeePerNight(t *testing.T) {
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("1000"),
		Multiplier:    dp("3"),
		IsForeigner:   true,
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, "300.00", result.Lines[1].Amount.StringFixed(2))
	assert.Equal(t, "420.00", result.TaxAmount.StringFixed(2))
}

func TestEvaluate_MissingMultiplierDefaultsToOne(t *testing.T) {
	result := Evaluate(Request{
		ServiceType: taxdomain.ServiceTypeAccommodation,
		IsForeigner: true,
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, "100.00", result.Lines[1].Amount.StringFixed(2))
}

func TestEvaluate_ZeroMultiplierChargesNoFixedTax(t *testing.T) {
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("500"),
		Multiplier:    dp("0"),
		IsForeigner:   true,
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[1].Amount.IsZero())
	assert.Equal(t, "60.00", result.TaxAmount.StringFixed(2))
}

func TestEvaluate_VendorOverrideWins(t *testing.T) {
	settings := []taxdomain.VendorTaxSetting{{
		TaxRateID:    tgstID,
		IsEnabled:    true,
		OverrideRate: decimal.NewNullDecimal(d("8")),
	}}

	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("500"),
	}, catalogRates(), settings, nil)

	require.Len(t, result.Lines, 1)
	assert.True(t, d("8").Equal(result.Lines[0].Rate))
	assert.Equal(t, "40.00", result.TaxAmount.StringFixed(2))
}

func TestEvaluate_VendorDisablesRate(t *testing.T) {
	settings := []taxdomain.VendorTaxSetting{{TaxRateID: tgstID, IsEnabled: false}}

	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("500"),
	}, catalogRates(), settings, nil)

	assert.Empty(t, result.Lines)
}

func TestEvaluate_VendorEnablesInactivePlatformRate(t *testing.T) {
	rates := catalogRates()
	rates[0].IsActive = false

	withoutSetting := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100")}, rates, nil, nil)
	assert.Empty(t, withoutSetting.Lines)

	settings := []taxdomain.VendorTaxSetting{{TaxRateID: tgstID, IsEnabled: true}}
	withSetting := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100")}, rates, settings, nil)
	require.Len(t, withSetting.Lines, 1)
	assert.True(t, d("12").Equal(withSetting.Lines[0].Rate))
}

func TestEvaluate_NationalityExemption(t *testing.T) {
	exemptions := []taxdomain.TaxExemption{nationalityExemption(tgstID, "IN", "BD")}

	result := Evaluate(Request{
		ServiceType:      taxdomain.ServiceTypeAccommodation,
		TaxableAmount:    d("1000"),
		GuestNationality: "in",
		At:               time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, catalogRates(), nil, exemptions)

	assert.Empty(t, result.Lines)
	assert.Equal(t, []string{"TGST"}, result.Exempted)
	assert.Equal(t, "exempted", result.Outcome())
}

func TestEvaluate_InactiveExemptionIgnored(t *testing.T) {
	exemption := nationalityExemption(tgstID, "IN")
	exemption.IsActive = false

	result := Evaluate(Request{
		ServiceType:      taxdomain.ServiceTypeAccommodation,
		TaxableAmount:    d("1000"),
		GuestNationality: "IN",
	}, catalogRates(), nil, []taxdomain.TaxExemption{exemption})

	require.Len(t, result.Lines, 1)
}

func TestEvaluate_ExemptionWindowIsInclusive(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	exemption := nationalityExemption(tgstID, "IN")
	exemption.ValidFrom = &from
	exemption.ValidTo = &to
	exemptions := []taxdomain.TaxExemption{exemption}

	cases := []struct {
		at      time.Time
		exempts bool
	}{
		{at: from, exempts: true},
		{at: to, exempts: true},
		{at: from.Add(-time.Second), exempts: false},
		{at: to.Add(time.Second), exempts: false},
	}
	for _, tc := range cases {
		result := Evaluate(Request{
			ServiceType:      taxdomain.ServiceTypeAccommodation,
			TaxableAmount:    d("100"),
			GuestNationality: "IN",
			At:               tc.at,
		}, catalogRates(), nil, exemptions)
		assert.Equal(t, tc.exempts, len(result.Lines) == 0, tc.at.String())
	}
}

func TestEvaluate_PromoCodeIsCaseInsensitive(t *testing.T) {
	exemptions := []taxdomain.TaxExemption{{
		TaxRateID:     serviceID,
		ExemptionType: taxdomain.ExemptionPromoCode,
		Conditions:    datatypes.NewJSONType(taxdomain.ExemptionConditions{PromoCodes: []string{"SUMMER25"}}),
		IsActive:      true,
	}}

	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeTour,
		TaxableAmount: d("200"),
		PromoCode:     " summer25 ",
	}, catalogRates(), nil, exemptions)

	assert.Empty(t, result.Lines)
}

func TestEvaluate_BookingTypeExemption(t *testing.T) {
	exemptions := []taxdomain.TaxExemption{{
		TaxRateID:     tgstID,
		ExemptionType: taxdomain.ExemptionBookingType,
		Conditions:    datatypes.NewJSONType(taxdomain.ExemptionConditions{BookingTypes: []string{"government"}}),
		IsActive:      true,
	}}

	exemptResult := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100"), BookingType: "Government"}, catalogRates(), nil, exemptions)
	assert.Empty(t, exemptResult.Lines)

	taxedResult := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100"), BookingType: "leisure"}, catalogRates(), nil, exemptions)
	assert.Len(t, taxedResult.Lines, 1)
}

func TestEvaluate_InclusiveTaxIsDisclosedNotAdded(t *testing.T) {
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeActivity,
		TaxableAmount: d("250"),
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].IsInclusive)
	assert.True(t, result.TaxAmount.IsZero())
	assert.Equal(t, "25.00", result.InclusiveAmount.StringFixed(2))
}

func TestEvaluate_PinnedRate(t *testing.T) {
	pinned := serviceID
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("100"),
		TaxRateID:     &pinned,
	}, catalogRates(), nil, nil)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "SERVICE_CHARGE", result.Lines[0].Code)
}

func TestEvaluate_UnknownPinnedRateMeansNoTax(t *testing.T) {
	unknown := snowflake.ID(999)
	result := Evaluate(Request{
		ServiceType:   taxdomain.ServiceTypeAccommodation,
		TaxableAmount: d("100"),
		TaxRateID:     &unknown,
	}, catalogRates(), nil, nil)

	assert.Empty(t, result.Lines)
	assert.True(t, result.TaxAmount.IsZero())
}

func TestEvaluate_EmptyCatalog(t *testing.T) {
	result := EvaluateCatalog(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100")}, nil)
	assert.NotNil(t, result.Lines)
	assert.Empty(t, result.Lines)
	assert.True(t, result.InclusiveAmount.IsZero())
}

func TestMergeAndRound(t *testing.T) {
	first := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("333.33")}, catalogRates(), nil, nil)
	second := Evaluate(Request{ServiceType: taxdomain.ServiceTypeAccommodation, TaxableAmount: d("100.01")}, catalogRates(), nil, nil)
	third := Evaluate(Request{ServiceType: taxdomain.ServiceTypeTour, TaxableAmount: d("50")}, catalogRates(), nil, nil)

	merged := Merge(first, second, third).Rounded()
	require.Len(t, merged.Lines, 2)
	assert.Equal(t, "52.00", merged.TaxAmount.StringFixed(2))
	assert.Equal(t, "5.00", merged.InclusiveAmount.StringFixed(2))
}
