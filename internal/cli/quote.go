package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendorbill/internal/pricing"
	"github.com/smallbiznis/vendorbill/internal/seed"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/tax/engine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// quoteFile is the YAML layout read by `vendorbill-cli quote`. Numbers are
// kept as strings so they are parsed as exact decimals.
type quoteFile struct {
	ServiceType string          `yaml:"service_type"`
	Currency    string          `yaml:"currency"`
	Date        string          `yaml:"date"`
	Guest       guestSpec       `yaml:"guest"`
	Items       []itemSpec      `yaml:"items"`
	Taxes       []taxSpec       `yaml:"taxes"`
	Exemptions  []exemptionSpec `yaml:"exemptions"`
}

type guestSpec struct {
	IsForeigner bool   `yaml:"is_foreigner"`
	Nationality string `yaml:"nationality"`
	BookingType string `yaml:"booking_type"`
	PromoCode   string `yaml:"promo_code"`
}

type itemSpec struct {
	ItemType        string `yaml:"item_type"`
	Description     string `yaml:"description"`
	Quantity        string `yaml:"quantity"`
	Unit            string `yaml:"unit"`
	UnitPrice       string `yaml:"unit_price"`
	DiscountPercent string `yaml:"discount_percent"`
	DiscountAmount  string `yaml:"discount_amount"`
	// TaxCode pins the line to one rate of the catalog.
	TaxCode string `yaml:"tax_code"`
}

type taxSpec struct {
	Code           string   `yaml:"code"`
	Name           string   `yaml:"name"`
	Rate           string   `yaml:"rate"`
	RateType       string   `yaml:"rate_type"`
	AppliesTo      []string `yaml:"applies_to"`
	ForeignersOnly bool     `yaml:"foreigners_only"`
	Inclusive      bool     `yaml:"inclusive"`
	Inactive       bool     `yaml:"inactive"`
}

type exemptionSpec struct {
	TaxCode       string   `yaml:"tax_code"`
	Type          string   `yaml:"type"`
	Nationalities []string `yaml:"nationalities"`
	BookingTypes  []string `yaml:"booking_types"`
	PromoCodes    []string `yaml:"promo_codes"`
	ValidFrom     string   `yaml:"valid_from"`
	ValidTo       string   `yaml:"valid_to"`
}

type quoteLine struct {
	Position     int              `json:"position"`
	Description  string           `json:"description"`
	ItemType     pricing.ItemType `json:"item_type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Unit         pricing.Unit     `json:"unit"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineSubtotal decimal.Decimal  `json:"line_subtotal"`
	LineTotal    decimal.Decimal  `json:"line_total"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
}

type quoteResult struct {
	ServiceType        taxdomain.ServiceType `json:"service_type"`
	Currency           string                `json:"currency"`
	Lines              []quoteLine           `json:"lines"`
	TaxLines           []engine.Line         `json:"tax_lines"`
	Exempted           []string              `json:"exempted,omitempty"`
	Totals             pricing.Totals        `json:"totals"`
	InclusiveTaxAmount decimal.Decimal       `json:"inclusive_tax_amount"`
}

func newQuoteCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "quote -f quote.yaml",
		Short: "Price line items against a tax catalog",
		Long:  "Reads line items, the guest context and optionally a tax catalog from YAML, then prints line totals, the tax breakdown and document totals. Without a taxes section the default platform catalog is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading quote file: %w", err)
			}

			var spec quoteFile
			if err := yaml.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("parsing quote file: %w", err)
			}

			result, err := priceQuote(spec, time.Now().UTC())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderQuote(result))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the quote YAML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func priceQuote(spec quoteFile, now time.Time) (*quoteResult, error) {
	serviceType, ok := taxdomain.ParseServiceType(spec.ServiceType)
	if !ok {
		return nil, fmt.Errorf("service_type %q: %w", spec.ServiceType, taxdomain.ErrInvalidServiceType)
	}

	at := now
	if raw := strings.TrimSpace(spec.Date); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("date %q: expected YYYY-MM-DD", raw)
		}
		at = parsed
	}

	catalog, err := buildCatalog(spec.Taxes, spec.Exemptions)
	if err != nil {
		return nil, err
	}
	codes := lo.SliceToMap(catalog.Rates, func(rate taxdomain.TaxRate) (string, snowflake.ID) {
		return rate.Code, rate.ID
	})

	lines := make([]pricing.Line, 0, len(spec.Items))
	results := make([]engine.Result, 0, len(spec.Items))
	out := make([]quoteLine, 0, len(spec.Items))

	for i, item := range spec.Items {
		parsed, pricingLine, err := parseItemSpec(item)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		parsed.Position = i + 1
		lines = append(lines, pricingLine)

		total := pricingLine.Total()
		parsed.LineSubtotal = pricing.Round(pricingLine.Gross())
		parsed.LineTotal = pricing.Round(total)
		parsed.TaxAmount = decimal.Zero

		if parsed.ItemType.Taxable() {
			lineType := serviceType
			if parsed.ItemType == pricing.ItemTypeAccommodation {
				lineType = taxdomain.ServiceTypeAccommodation
			}
			multiplier := decimal.NewFromInt(1)
			if parsed.Unit.ScalesFixedTax() {
				multiplier = parsed.Quantity
			}
			req := engine.Request{
				ServiceType:      lineType,
				TaxableAmount:    total,
				Multiplier:       &multiplier,
				IsForeigner:      spec.Guest.IsForeigner,
				GuestNationality: spec.Guest.Nationality,
				BookingType:      spec.Guest.BookingType,
				PromoCode:        spec.Guest.PromoCode,
				At:               at,
			}
			if code := strings.ToUpper(strings.TrimSpace(item.TaxCode)); code != "" {
				// an unknown code pins to id 0, which never matches
				id := codes[code]
				req.TaxRateID = &id
			}
			result := engine.EvaluateCatalog(req, catalog)
			parsed.TaxAmount = result.Rounded().TaxAmount
			results = append(results, result)
		}
		out = append(out, parsed)
	}

	tax := engine.Merge(results...).Rounded()
	currency := strings.ToUpper(strings.TrimSpace(spec.Currency))
	if currency == "" {
		currency = "USD"
	}

	return &quoteResult{
		ServiceType:        serviceType,
		Currency:           currency,
		Lines:              out,
		TaxLines:           tax.Lines,
		Exempted:           tax.Exempted,
		Totals:             pricing.AggregateRounded(lines).WithTax(tax.TaxAmount).Rounded(),
		InclusiveTaxAmount: tax.InclusiveAmount,
	}, nil
}

func parseItemSpec(item itemSpec) (quoteLine, pricing.Line, error) {
	itemType, ok := pricing.ParseItemType(item.ItemType)
	if !ok {
		return quoteLine{}, pricing.Line{}, fmt.Errorf("unsupported item_type %q", item.ItemType)
	}
	unit := pricing.UnitItem
	if strings.TrimSpace(item.Unit) != "" {
		if unit, ok = pricing.ParseUnit(item.Unit); !ok {
			return quoteLine{}, pricing.Line{}, fmt.Errorf("unsupported unit %q", item.Unit)
		}
	}

	quantity, err := requiredDecimal("quantity", item.Quantity)
	if err != nil {
		return quoteLine{}, pricing.Line{}, err
	}
	if !quantity.IsPositive() {
		return quoteLine{}, pricing.Line{}, fmt.Errorf("quantity must be greater than zero")
	}
	unitPrice, err := requiredDecimal("unit_price", item.UnitPrice)
	if err != nil {
		return quoteLine{}, pricing.Line{}, err
	}
	if unitPrice.IsNegative() {
		return quoteLine{}, pricing.Line{}, fmt.Errorf("unit_price must not be negative")
	}
	percent, err := optionalDecimal("discount_percent", item.DiscountPercent)
	if err != nil {
		return quoteLine{}, pricing.Line{}, err
	}
	if percent != nil && (percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100))) {
		return quoteLine{}, pricing.Line{}, fmt.Errorf("discount_percent must be between 0 and 100")
	}
	amount, err := optionalDecimal("discount_amount", item.DiscountAmount)
	if err != nil {
		return quoteLine{}, pricing.Line{}, err
	}
	if amount != nil && amount.IsNegative() {
		return quoteLine{}, pricing.Line{}, fmt.Errorf("discount_amount must not be negative")
	}

	line := quoteLine{
		Description: strings.TrimSpace(item.Description),
		ItemType:    itemType,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   unitPrice,
	}
	return line, pricing.Line{
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: percent,
		DiscountAmount:  amount,
	}, nil
}

// buildCatalog turns the YAML taxes into an in-memory catalog. Rates get
// sequential ids starting at 1.
func buildCatalog(taxes []taxSpec, exemptions []exemptionSpec) (*taxdomain.Catalog, error) {
	var rates []taxdomain.TaxRate
	if len(taxes) == 0 {
		rates = seed.DefaultTaxRates()
	} else {
		rates = make([]taxdomain.TaxRate, 0, len(taxes))
		for i, spec := range taxes {
			rate, err := requiredDecimal("rate", spec.Rate)
			if err != nil {
				return nil, fmt.Errorf("taxes[%d]: %w", i, err)
			}
			rateType := taxdomain.RateType(strings.ToLower(strings.TrimSpace(spec.RateType)))
			if rateType == "" {
				rateType = taxdomain.RateTypePercentage
			}
			rates = append(rates, taxdomain.TaxRate{
				Name:                    strings.TrimSpace(spec.Name),
				Code:                    strings.ToUpper(strings.TrimSpace(spec.Code)),
				Rate:                    rate,
				RateType:                rateType,
				AppliesTo:               pq.StringArray(spec.AppliesTo),
				AppliesToForeignersOnly: spec.ForeignersOnly,
				IsInclusive:             spec.Inclusive,
				IsActive:                !spec.Inactive,
			})
		}
	}

	byCode := make(map[string]snowflake.ID, len(rates))
	for i := range rates {
		rates[i].ID = snowflake.ID(i + 1)
		if rates[i].Name == "" {
			rates[i].Name = rates[i].Code
		}
		if err := rates[i].Validate(); err != nil {
			return nil, fmt.Errorf("taxes[%d] %s: %w", i, rates[i].Code, err)
		}
		byCode[rates[i].Code] = rates[i].ID
	}

	exempts := make([]taxdomain.TaxExemption, 0, len(exemptions))
	for i, spec := range exemptions {
		code := strings.ToUpper(strings.TrimSpace(spec.TaxCode))
		rateID, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("exemptions[%d]: unknown tax_code %q", i, spec.TaxCode)
		}
		exemption := taxdomain.TaxExemption{
			ID:            snowflake.ID(i + 1),
			TaxRateID:     rateID,
			Name:          code + " exemption",
			ExemptionType: taxdomain.ExemptionType(strings.ToLower(strings.TrimSpace(spec.Type))),
			Conditions: datatypes.NewJSONType(taxdomain.ExemptionConditions{
				Nationalities: spec.Nationalities,
				BookingTypes:  spec.BookingTypes,
				PromoCodes:    spec.PromoCodes,
			}),
			IsActive: true,
		}
		var err error
		if exemption.ValidFrom, err = optionalDate(spec.ValidFrom, false); err != nil {
			return nil, fmt.Errorf("exemptions[%d]: %w", i, err)
		}
		if exemption.ValidTo, err = optionalDate(spec.ValidTo, true); err != nil {
			return nil, fmt.Errorf("exemptions[%d]: %w", i, err)
		}
		exempts = append(exempts, exemption)
	}

	return &taxdomain.Catalog{Rates: rates, Exemptions: exempts}, nil
}

func requiredDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", field, raw)
	}
	return d, nil
}

func optionalDecimal(field, raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := requiredDecimal(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("date %q: expected YYYY-MM-DD", raw)
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
