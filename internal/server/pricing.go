package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/internal/pricing"
)

type lineTotalRequest struct {
	Quantity        decimal.Decimal  `json:"quantity" binding:"gte=0"`
	UnitPrice       decimal.Decimal  `json:"unit_price" binding:"gte=0"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount" binding:"omitempty,gte=0"`
}

type lineTotalResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type lineItemRequest struct {
	ItemType        string           `json:"item_type" binding:"required,item_type"`
	Description     string           `json:"description" binding:"required"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"gt=0"`
	Unit            string           `json:"unit" binding:"omitempty,unit"`
	UnitPrice       decimal.Decimal  `json:"unit_price" binding:"gte=0"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount" binding:"omitempty,gte=0"`
	TaxRateID       string           `json:"tax_rate_id"`
}

type guestRequest struct {
	IsForeigner      bool   `json:"is_foreigner"`
	GuestNationality string `json:"guest_nationality" binding:"omitempty,len=2"`
	BookingType      string `json:"booking_type"`
	PromoCode        string `json:"promo_code"`
}

type totalsRequest struct {
	ServiceType string            `json:"service_type" binding:"required,service_type"`
	Date        *string           `json:"date"`
	Items       []lineItemRequest `json:"items" binding:"dive"`
	guestRequest
}

// LineTotal prices a single line without any tax.
func (s *Server) LineTotal(c *gin.Context) {
	var req lineTotalRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	line := pricing.Line{
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
	}
	gross := line.Gross()
	total := line.Total()

	respondOK(c, lineTotalResponse{
		Subtotal:       pricing.Round(gross),
		DiscountAmount: pricing.Round(gross.Sub(total)),
		LineTotal:      pricing.Round(total),
	})
}

// DocumentTotals runs the full document pricing pipeline, taxes included,
// without persisting a document.
func (s *Server) DocumentTotals(c *gin.Context) {
	var req totalsRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	date, err := parseOptionalTime(req.Date, false)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.documentSvc.Price(c.Request.Context(), documentdomain.PriceRequest{
		ServiceType:  strings.TrimSpace(req.ServiceType),
		Date:         date,
		Items:        toLineItemInputs(req.Items),
		GuestContext: req.guestRequest.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func toLineItemInputs(items []lineItemRequest) []documentdomain.LineItemInput {
	if items == nil {
		return nil
	}
	out := make([]documentdomain.LineItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, documentdomain.LineItemInput{
			ItemType:        strings.TrimSpace(item.ItemType),
			Description:     strings.TrimSpace(item.Description),
			Quantity:        item.Quantity,
			Unit:            strings.TrimSpace(item.Unit),
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			DiscountAmount:  item.DiscountAmount,
			TaxRateID:       strings.TrimSpace(item.TaxRateID),
		})
	}
	return out
}

func (g guestRequest) toDomain() documentdomain.GuestContext {
	return documentdomain.GuestContext{
		IsForeigner:      g.IsForeigner,
		GuestNationality: strings.TrimSpace(g.GuestNationality),
		BookingType:      strings.TrimSpace(g.BookingType),
		PromoCode:        strings.TrimSpace(g.PromoCode),
	}
}
