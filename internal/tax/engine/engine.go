package engine

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
)

var hundred = decimal.NewFromInt(100)

// Request describes one taxable amount.
type Request struct {
	ServiceType   taxdomain.ServiceType
	TaxableAmount decimal.Decimal
	// Multiplier scales fixed-amount taxes, e.g. nights or guests. Nil means 1;
	// an explicit zero charges no fixed tax.
	Multiplier *decimal.Decimal

	IsForeigner      bool
	GuestNationality string
	BookingType      string
	PromoCode        string

	// TaxRateID pins the line to a single rate, bypassing service type
	// matching. An id missing from the catalog yields no tax.
	TaxRateID *snowflake.ID

	// At is the instant exemption windows are checked against.
	At time.Time
}

// Line is one tax applied to a request.
type Line struct {
	TaxRateID   snowflake.ID       `json:"tax_rate_id"`
	TaxName     string             `json:"tax_name"`
	Code        string             `json:"code"`
	Rate        decimal.Decimal    `json:"rate"`
	RateType    taxdomain.RateType `json:"rate_type"`
	Amount      decimal.Decimal    `json:"amount"`
	IsInclusive bool               `json:"is_inclusive"`
}

// Result lists every applicable tax. TaxAmount holds exclusive taxes only;
// inclusive taxes are already part of the price and only disclosed.
type Result struct {
	Lines           []Line          `json:"lines"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	InclusiveAmount decimal.Decimal `json:"inclusive_amount"`
	// Exempted holds the codes of rates waived by an exemption.
	Exempted []string `json:"exempted,omitempty"`
}

// Outcome classifies a result for metrics.
func (r Result) Outcome() string {
	switch {
	case len(r.Lines) > 0:
		return "taxed"
	case len(r.Exempted) > 0:
		return "exempted"
	default:
		return "untaxed"
	}
}

// Evaluate resolves the taxes that apply to req. It never fails: missing or
// disabled rates simply produce no tax.
func Evaluate(req Request, rates []taxdomain.TaxRate, settings []taxdomain.VendorTaxSetting, exemptions []taxdomain.TaxExemption) Result {
	result := Result{
		Lines:           []Line{},
		TaxAmount:       decimal.Zero,
		InclusiveAmount: decimal.Zero,
	}

	candidates := lo.Filter(rates, func(rate taxdomain.TaxRate, _ int) bool {
		if req.TaxRateID != nil {
			return rate.ID == *req.TaxRateID
		}
		return rate.AppliesToService(req.ServiceType)
	})
	if len(candidates) == 0 {
		return result
	}

	settingByRate := lo.SliceToMap(settings, func(s taxdomain.VendorTaxSetting) (snowflake.ID, taxdomain.VendorTaxSetting) {
		return s.TaxRateID, s
	})
	exemptionsByRate := lo.GroupBy(
		lo.Filter(exemptions, func(e taxdomain.TaxExemption, _ int) bool { return e.IsActive }),
		func(e taxdomain.TaxExemption) snowflake.ID { return e.TaxRateID },
	)

	multiplier := decimal.NewFromInt(1)
	if req.Multiplier != nil {
		multiplier = *req.Multiplier
	}

	for _, rate := range candidates {
		enabled, value := effective(rate, settingByRate)
		if !enabled {
			continue
		}
		if rate.AppliesToForeignersOnly && !req.IsForeigner {
			continue
		}
		if exempted(req, exemptionsByRate[rate.ID]) {
			result.Exempted = append(result.Exempted, rate.Code)
			continue
		}

		var amount decimal.Decimal
		switch rate.RateType {
		case taxdomain.RateTypeFixed:
			amount = value.Mul(multiplier)
		default:
			amount = req.TaxableAmount.Mul(value).Div(hundred)
		}

		result.Lines = append(result.Lines, Line{
			TaxRateID:   rate.ID,
			TaxName:     rate.Name,
			Code:        rate.Code,
			Rate:        value,
			RateType:    rate.RateType,
			Amount:      amount,
			IsInclusive: rate.IsInclusive,
		})
		if rate.IsInclusive {
			result.InclusiveAmount = result.InclusiveAmount.Add(amount)
		} else {
			result.TaxAmount = result.TaxAmount.Add(amount)
		}
	}

	return result
}

// EvaluateCatalog is Evaluate over a loaded vendor catalog.
func EvaluateCatalog(req Request, catalog *taxdomain.Catalog) Result {
	if catalog == nil {
		return Evaluate(req, nil, nil, nil)
	}
	return Evaluate(req, catalog.Rates, catalog.Settings, catalog.Exemptions)
}

func effective(rate taxdomain.TaxRate, settings map[snowflake.ID]taxdomain.VendorTaxSetting) (bool, decimal.Decimal) {
	setting, ok := settings[rate.ID]
	if !ok {
		return rate.IsActive, rate.Rate
	}
	if setting.OverrideRate.Valid {
		return setting.IsEnabled, setting.OverrideRate.Decimal
	}
	return setting.IsEnabled, rate.Rate
}

func exempted(req Request, exemptions []taxdomain.TaxExemption) bool {
	for _, exemption := range exemptions {
		if !exemption.Covers(req.At) {
			continue
		}
		conditions := exemption.Conditions.Data()
		switch exemption.ExemptionType {
		case taxdomain.ExemptionGuestNationality:
			if containsNormalized(conditions.Nationalities, req.GuestNationality, strings.ToUpper) {
				return true
			}
		case taxdomain.ExemptionBookingType:
			if containsNormalized(conditions.BookingTypes, req.BookingType, strings.ToLower) {
				return true
			}
		case taxdomain.ExemptionPromoCode:
			if containsNormalized(conditions.PromoCodes, req.PromoCode, strings.ToUpper) {
				return true
			}
		}
	}
	return false
}

func containsNormalized(set []string, value string, normalize func(string) string) bool {
	value = normalize(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	return lo.ContainsBy(set, func(item string) bool {
		return normalize(strings.TrimSpace(item)) == value
	})
}
