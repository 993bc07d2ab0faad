package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendorbill/internal/pricing"
	"github.com/smallbiznis/vendorbill/internal/tax/engine"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Document, error)

	Finalize(ctx context.Context, id string) (*Document, error)
	Void(ctx context.Context, id string, reason string) (*Document, error)
	Accept(ctx context.Context, id string) (*Document, error)
	Reject(ctx context.Context, id string, reason string) (*Document, error)
	// Convert turns an accepted quotation into a new draft invoice.
	Convert(ctx context.Context, id string) (*Document, error)

	// Price runs the document pricing pipeline without persisting anything.
	Price(ctx context.Context, req PriceRequest) (*PriceResponse, error)
	RenderPDF(ctx context.Context, id string) (*RenderedDocument, error)
}

type LineItemInput struct {
	ItemType        string           `json:"item_type"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Unit            string           `json:"unit"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount"`
	TaxRateID       string           `json:"tax_rate_id"`
}

// GuestContext carries the guest facts tax exemptions are evaluated on.
type GuestContext struct {
	IsForeigner      bool   `json:"is_foreigner"`
	GuestNationality string `json:"guest_nationality"`
	BookingType      string `json:"booking_type"`
	PromoCode        string `json:"promo_code"`
}

type CreateRequest struct {
	Kind          string          `json:"kind"`
	ServiceType   string          `json:"service_type"`
	Currency      string          `json:"currency"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Notes         string          `json:"notes"`
	Metadata      map[string]any  `json:"metadata"`
	Items         []LineItemInput `json:"items"`
	GuestContext
}

// UpdateRequest patches a draft. Nil fields are left untouched; a non-nil
// Items replaces every line item.
type UpdateRequest struct {
	ID               string          `json:"-"`
	ServiceType      *string         `json:"service_type"`
	Currency         *string         `json:"currency"`
	CustomerName     *string         `json:"customer_name"`
	CustomerEmail    *string         `json:"customer_email"`
	Notes            *string         `json:"notes"`
	Metadata         map[string]any  `json:"metadata"`
	IsForeigner      *bool           `json:"is_foreigner"`
	GuestNationality *string         `json:"guest_nationality"`
	BookingType      *string         `json:"booking_type"`
	PromoCode        *string         `json:"promo_code"`
	Items            []LineItemInput `json:"items"`
}

type ListRequest struct {
	Kind    string
	Status  string
	SortBy  string
	OrderBy string
	pagination.Pagination
}

type ListResponse struct {
	Documents []*Document
	PageInfo  pagination.PageInfo
}

type PriceRequest struct {
	ServiceType string          `json:"service_type"`
	Date        *time.Time      `json:"date"`
	Items       []LineItemInput `json:"items"`
	GuestContext
}

type PriceResponse struct {
	Items              []LineItem      `json:"items"`
	Totals             pricing.Totals  `json:"totals"`
	InclusiveTaxAmount decimal.Decimal `json:"inclusive_tax_amount"`
	TaxLines           []engine.Line   `json:"tax_lines"`
	Exempted           []string        `json:"exempted,omitempty"`
}

type RenderedDocument struct {
	Filename string
	Content  []byte
}
