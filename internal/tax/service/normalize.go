package service

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/samber/lo"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
)

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, taxdomain.ErrInvalidID
	}
	return id, nil
}

// normalizeCode turns free text into an engine code: "Green Tax 2%" becomes
// "GREEN_TAX_2".
func normalizeCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(slug.Make(raw), "-", "_"))
}

func normalizeRateType(rt taxdomain.RateType) taxdomain.RateType {
	return taxdomain.RateType(strings.ToLower(strings.TrimSpace(string(rt))))
}

func normalizeServiceTypes(items []string) pq.StringArray {
	out := lo.Uniq(lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = strings.ToLower(strings.TrimSpace(item))
		return item, item != ""
	}))
	return pq.StringArray(out)
}

// normalizeConditions keeps only the condition set matching the exemption
// type, normalized the way the engine compares it.
func normalizeConditions(exemptionType taxdomain.ExemptionType, in taxdomain.ExemptionConditions) (taxdomain.ExemptionConditions, error) {
	switch exemptionType {
	case taxdomain.ExemptionGuestNationality:
		values := normalizeSet(in.Nationalities, strings.ToUpper)
		for _, v := range values {
			if len(v) != 2 && len(v) != 3 {
				return taxdomain.ExemptionConditions{}, taxdomain.ErrInvalidConditions
			}
		}
		if len(values) == 0 {
			return taxdomain.ExemptionConditions{}, taxdomain.ErrInvalidConditions
		}
		return taxdomain.ExemptionConditions{Nationalities: values}, nil
	case taxdomain.ExemptionBookingType:
		values := normalizeSet(in.BookingTypes, strings.ToLower)
		if len(values) == 0 {
			return taxdomain.ExemptionConditions{}, taxdomain.ErrInvalidConditions
		}
		return taxdomain.ExemptionConditions{BookingTypes: values}, nil
	case taxdomain.ExemptionPromoCode:
		values := normalizeSet(in.PromoCodes, strings.ToUpper)
		if len(values) == 0 {
			return taxdomain.ExemptionConditions{}, taxdomain.ErrInvalidConditions
		}
		return taxdomain.ExemptionConditions{PromoCodes: values}, nil
	default:
		return taxdomain.ExemptionConditions{}, taxdomain.ErrInvalidExemptionType
	}
}

func normalizeSet(items []string, normalize func(string) string) []string {
	return lo.Uniq(lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = normalize(strings.TrimSpace(item))
		return item, item != ""
	}))
}

func validateWindow(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return taxdomain.ErrInvalidValidityWindow
	}
	return nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
