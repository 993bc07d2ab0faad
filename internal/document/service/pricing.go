package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/internal/pricing"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/tax/engine"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// guest is the subset of a document the tax engine looks at.
type guest struct {
	serviceType      taxdomain.ServiceType
	isForeigner      bool
	guestNationality string
	bookingType      string
	promoCode        string
}

func guestOf(doc *documentdomain.Document) guest {
	serviceType, _ := taxdomain.ParseServiceType(doc.ServiceType)
	return guest{
		serviceType:      serviceType,
		isForeigner:      doc.IsForeigner,
		guestNationality: doc.GuestNationality,
		bookingType:      doc.BookingType,
		promoCode:        doc.PromoCode,
	}
}

type priced struct {
	items  []documentdomain.LineItem
	totals pricing.Totals
	tax    engine.Result
	// evaluations holds the raw per line results, for metrics.
	evaluations []evaluation
}

type evaluation struct {
	serviceType taxdomain.ServiceType
	result      engine.Result
}

// parseItems validates line item input and returns unpriced items in input
// order.
func parseItems(inputs []documentdomain.LineItemInput) ([]documentdomain.LineItem, error) {
	items := make([]documentdomain.LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := parseItem(in)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		item.Position = i + 1
		items = append(items, item)
	}
	return items, nil
}

func parseItem(in documentdomain.LineItemInput) (documentdomain.LineItem, error) {
	itemType, ok := pricing.ParseItemType(in.ItemType)
	if !ok {
		return documentdomain.LineItem{}, documentdomain.ErrInvalidItemType
	}
	unit := pricing.UnitItem
	if strings.TrimSpace(in.Unit) != "" {
		if unit, ok = pricing.ParseUnit(in.Unit); !ok {
			return documentdomain.LineItem{}, documentdomain.ErrInvalidUnit
		}
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return documentdomain.LineItem{}, documentdomain.ErrInvalidDescription
	}
	if !in.Quantity.IsPositive() {
		return documentdomain.LineItem{}, documentdomain.ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return documentdomain.LineItem{}, documentdomain.ErrInvalidUnitPrice
	}

	item := documentdomain.LineItem{
		ItemType:    itemType,
		Description: description,
		Quantity:    in.Quantity,
		Unit:        unit,
		UnitPrice:   in.UnitPrice,
	}
	if in.DiscountPercent != nil {
		if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
			return documentdomain.LineItem{}, documentdomain.ErrInvalidDiscount
		}
		item.DiscountPercent = decimal.NewNullDecimal(*in.DiscountPercent)
	}
	if in.DiscountAmount != nil {
		if in.DiscountAmount.IsNegative() {
			return documentdomain.LineItem{}, documentdomain.ErrInvalidDiscount
		}
		item.DiscountAmount = decimal.NewNullDecimal(*in.DiscountAmount)
	}
	if raw := strings.TrimSpace(in.TaxRateID); raw != "" {
		rateID, err := snowflake.ParseString(raw)
		if err != nil || rateID == 0 {
			return documentdomain.LineItem{}, documentdomain.ErrInvalidTaxRateID
		}
		item.TaxRateID = &rateID
	}
	return item, nil
}

// priceItems prices every item, resolves per line tax against the catalog
// and folds the result into document totals. Items are updated in place.
func priceItems(g guest, items []documentdomain.LineItem, catalog *taxdomain.Catalog, at time.Time) priced {
	lines := make([]pricing.Line, 0, len(items))
	evaluations := make([]evaluation, 0, len(items))

	for i := range items {
		item := &items[i]
		line := item.PricingLine()
		lines = append(lines, line)

		total := line.Total()
		item.LineSubtotal = pricing.Round(line.Gross())
		item.LineTotal = pricing.Round(total)
		item.LineDiscount = item.LineSubtotal.Sub(item.LineTotal)
		item.TaxAmount = decimal.Zero
		item.InclusiveTaxAmount = decimal.Zero

		if !item.ItemType.Taxable() {
			continue
		}

		serviceType := lineServiceType(item.ItemType, g.serviceType)
		multiplier := one
		if item.Unit.ScalesFixedTax() {
			multiplier = item.Quantity
		}
		result := engine.EvaluateCatalog(engine.Request{
			ServiceType:      serviceType,
			TaxableAmount:    total,
			Multiplier:       &multiplier,
			IsForeigner:      g.isForeigner,
			GuestNationality: g.guestNationality,
			BookingType:      g.bookingType,
			PromoCode:        g.promoCode,
			TaxRateID:        item.TaxRateID,
			At:               at,
		}, catalog)

		rounded := result.Rounded()
		item.TaxAmount = rounded.TaxAmount
		item.InclusiveTaxAmount = rounded.InclusiveAmount
		evaluations = append(evaluations, evaluation{serviceType: serviceType, result: result})
	}

	tax := engine.Merge(lo.Map(evaluations, func(e evaluation, _ int) engine.Result {
		return e.result
	})...).Rounded()

	return priced{
		items:       items,
		totals:      pricing.AggregateRounded(lines).WithTax(tax.TaxAmount).Rounded(),
		tax:         tax,
		evaluations: evaluations,
	}
}

// lineServiceType picks the service type a line is taxed as. Accommodation
// lines are always taxed as accommodation, whatever the document sells.
func lineServiceType(itemType pricing.ItemType, documentType taxdomain.ServiceType) taxdomain.ServiceType {
	if itemType == pricing.ItemTypeAccommodation {
		return taxdomain.ServiceTypeAccommodation
	}
	return documentType
}

func taxLinesOf(doc *documentdomain.Document, tax engine.Result, genID *snowflake.Node, now time.Time) []documentdomain.TaxLine {
	return lo.Map(tax.Lines, func(line engine.Line, _ int) documentdomain.TaxLine {
		return documentdomain.TaxLine{
			ID:          genID.Generate(),
			DocumentID:  doc.ID,
			VendorID:    doc.VendorID,
			TaxRateID:   line.TaxRateID,
			Code:        line.Code,
			TaxName:     line.TaxName,
			RateType:    string(line.RateType),
			Rate:        line.Rate,
			Amount:      line.Amount,
			IsInclusive: line.IsInclusive,
			CreatedAt:   now,
		}
	})
}

// apply copies priced amounts onto the document and stamps item identity.
func (p priced) apply(doc *documentdomain.Document, genID *snowflake.Node, now time.Time) {
	for i := range p.items {
		p.items[i].ID = genID.Generate()
		p.items[i].DocumentID = doc.ID
		p.items[i].VendorID = doc.VendorID
		p.items[i].CreatedAt = now
	}
	doc.Items = p.items
	doc.TaxLines = taxLinesOf(doc, p.tax, genID, now)
	doc.Subtotal = p.totals.Subtotal
	doc.DiscountAmount = p.totals.DiscountAmount
	doc.TaxAmount = p.totals.TaxAmount
	doc.InclusiveTaxAmount = p.tax.InclusiveAmount
	doc.Total = p.totals.Total
}
