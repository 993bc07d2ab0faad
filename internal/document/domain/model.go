package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	"github.com/smallbiznis/vendorbill/internal/pricing"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindQuotation Kind = "quotation"
	KindInvoice   Kind = "invoice"
)

func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case KindQuotation, KindInvoice:
		return k, true
	}
	return "", false
}

// NumberKind maps a document kind onto its number sequence.
func (k Kind) NumberKind() docnumberdomain.Kind {
	return docnumberdomain.Kind(k)
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusFinalized Status = "FINALIZED"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusVoid      Status = "VOID"
)

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusDraft, StatusFinalized, StatusAccepted, StatusRejected, StatusVoid:
		return s, true
	}
	return "", false
}

// Document is a quotation or an invoice. Amounts are stored rounded to
// money scale and always satisfy total = subtotal - discount + tax.
type Document struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	VendorID           snowflake.ID      `gorm:"column:vendor_id;not null;index" json:"vendor_id"`
	Kind               Kind              `gorm:"type:text;not null" json:"kind"`
	Status             Status            `gorm:"type:text;not null" json:"status"`
	DocumentNumber     *string           `gorm:"column:document_number;type:text" json:"document_number,omitempty"`
	SourceDocumentID   *snowflake.ID     `gorm:"column:source_document_id" json:"source_document_id,omitempty"`
	ConvertedToID      *snowflake.ID     `gorm:"column:converted_to_id" json:"converted_to_id,omitempty"`
	ServiceType        string            `gorm:"type:text;not null" json:"service_type"`
	Currency           string            `gorm:"type:text;not null" json:"currency"`
	CustomerName       string            `gorm:"type:text;not null" json:"customer_name"`
	CustomerEmail      string            `gorm:"type:text;not null;default:''" json:"customer_email,omitempty"`
	IsForeigner        bool              `gorm:"not null;default:false" json:"is_foreigner"`
	GuestNationality   string            `gorm:"type:text;not null;default:''" json:"guest_nationality,omitempty"`
	BookingType        string            `gorm:"type:text;not null;default:''" json:"booking_type,omitempty"`
	PromoCode          string            `gorm:"type:text;not null;default:''" json:"promo_code,omitempty"`
	Subtotal           decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"subtotal"`
	DiscountAmount     decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"discount_amount"`
	TaxAmount          decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"tax_amount"`
	InclusiveTaxAmount decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"inclusive_tax_amount"`
	Total              decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"total"`
	Notes              string            `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	StatusReason       *string           `gorm:"type:text" json:"status_reason,omitempty"`
	IssuedAt           *time.Time        `json:"issued_at,omitempty"`
	ValidUntil         *time.Time        `json:"valid_until,omitempty"`
	AcceptedAt         *time.Time        `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time        `json:"rejected_at,omitempty"`
	VoidedAt           *time.Time        `json:"voided_at,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items    []LineItem `gorm:"-" json:"items"`
	TaxLines []TaxLine  `gorm:"-" json:"tax_lines"`
}

func (Document) TableName() string { return "documents" }

// Totals returns the stored money summary.
func (d Document) Totals() pricing.Totals {
	return pricing.Totals{
		Subtotal:       d.Subtotal,
		DiscountAmount: d.DiscountAmount,
		TaxAmount:      d.TaxAmount,
		Total:          d.Total,
	}
}

// Expired reports whether a quotation can no longer be accepted at now.
func (d Document) Expired(now time.Time) bool {
	return d.Kind == KindQuotation && d.ValidUntil != nil && now.After(*d.ValidUntil)
}

// LineItem is one priced row. DiscountPercent and DiscountAmount are the
// inputs; LineSubtotal, LineDiscount and LineTotal are derived.
type LineItem struct {
	ID                 snowflake.ID        `gorm:"primaryKey" json:"id"`
	DocumentID         snowflake.ID        `gorm:"column:document_id;not null;index" json:"document_id"`
	VendorID           snowflake.ID        `gorm:"column:vendor_id;not null" json:"vendor_id"`
	Position           int                 `gorm:"not null" json:"position"`
	ItemType           pricing.ItemType    `gorm:"type:text;not null" json:"item_type"`
	Description        string              `gorm:"type:text;not null" json:"description"`
	Quantity           decimal.Decimal     `gorm:"type:numeric(18,4);not null" json:"quantity"`
	Unit               pricing.Unit        `gorm:"type:text;not null" json:"unit"`
	UnitPrice          decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	DiscountPercent    decimal.NullDecimal `gorm:"type:numeric(5,2)" json:"discount_percent"`
	DiscountAmount     decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"discount_amount"`
	TaxRateID          *snowflake.ID       `gorm:"column:tax_rate_id" json:"tax_rate_id,omitempty"`
	LineSubtotal       decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"line_subtotal"`
	LineDiscount       decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"line_discount"`
	LineTotal          decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"line_total"`
	TaxAmount          decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"tax_amount"`
	InclusiveTaxAmount decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"inclusive_tax_amount"`
	CreatedAt          time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LineItem) TableName() string { return "document_items" }

// PricingLine returns the calculator input of the item.
func (i LineItem) PricingLine() pricing.Line {
	line := pricing.Line{Quantity: i.Quantity, UnitPrice: i.UnitPrice}
	if i.DiscountPercent.Valid {
		v := i.DiscountPercent.Decimal
		line.DiscountPercent = &v
	}
	if i.DiscountAmount.Valid {
		v := i.DiscountAmount.Decimal
		line.DiscountAmount = &v
	}
	return line
}

// TaxLine captures one tax rate applied to a document, summed over its items.
type TaxLine struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	DocumentID  snowflake.ID    `gorm:"column:document_id;not null;index" json:"document_id"`
	VendorID    snowflake.ID    `gorm:"column:vendor_id;not null" json:"vendor_id"`
	TaxRateID   snowflake.ID    `gorm:"column:tax_rate_id;not null" json:"tax_rate_id"`
	Code        string          `gorm:"type:text;not null" json:"code"`
	TaxName     string          `gorm:"type:text;not null" json:"tax_name"`
	RateType    string          `gorm:"type:text;not null" json:"rate_type"`
	Rate        decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	IsInclusive bool            `gorm:"not null;default:false" json:"is_inclusive"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TaxLine) TableName() string { return "document_tax_lines" }
