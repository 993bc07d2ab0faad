package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Resolver loads the tax catalog that applies to a vendor.
type Resolver interface {
	LoadCatalog(ctx context.Context, vendorID snowflake.ID) (*Catalog, error)
}

type Service interface {
	CreateRate(ctx context.Context, req CreateRateRequest) (*TaxRate, error)
	ListRates(ctx context.Context, req ListRatesRequest) ([]TaxRate, error)
	UpdateRate(ctx context.Context, req UpdateRateRequest) (*TaxRate, error)
	DeactivateRate(ctx context.Context, id string) (*TaxRate, error)

	UpsertVendorSetting(ctx context.Context, req UpsertVendorSettingRequest) (*VendorTaxSetting, error)
	ListVendorSettings(ctx context.Context) ([]VendorTaxSettingView, error)
	DeleteVendorSetting(ctx context.Context, taxRateID string) error

	CreateExemption(ctx context.Context, req CreateExemptionRequest) (*TaxExemption, error)
	ListExemptions(ctx context.Context, req ListExemptionsRequest) ([]TaxExemption, error)
	UpdateExemption(ctx context.Context, req UpdateExemptionRequest) (*TaxExemption, error)
	DeactivateExemption(ctx context.Context, id string) (*TaxExemption, error)

	Calculate(ctx context.Context, req CalculateRequest) (*CalculateResponse, error)
}

type CreateRateRequest struct {
	Name                    string          `json:"name"`
	Code                    string          `json:"code"`
	Description             *string         `json:"description"`
	Rate                    decimal.Decimal `json:"rate"`
	RateType                RateType        `json:"rate_type"`
	AppliesTo               []string        `json:"applies_to"`
	AppliesToForeignersOnly bool            `json:"applies_to_foreigners_only"`
	IsInclusive             bool            `json:"is_inclusive"`
	IsActive                *bool           `json:"is_active"`
}

type ListRatesRequest struct {
	Code        string
	ServiceType string
	IsActive    *bool
	SortBy      string
	OrderBy     string
}

type UpdateRateRequest struct {
	ID                      string           `json:"-"`
	Name                    *string          `json:"name,omitempty"`
	Description             *string          `json:"description,omitempty"`
	Rate                    *decimal.Decimal `json:"rate,omitempty"`
	RateType                *RateType        `json:"rate_type,omitempty"`
	AppliesTo               []string         `json:"applies_to,omitempty"`
	AppliesToForeignersOnly *bool            `json:"applies_to_foreigners_only,omitempty"`
	IsInclusive             *bool            `json:"is_inclusive,omitempty"`
	IsActive                *bool            `json:"is_active,omitempty"`
}

type UpsertVendorSettingRequest struct {
	TaxRateID    string           `json:"-"`
	IsEnabled    bool             `json:"is_enabled"`
	OverrideRate *decimal.Decimal `json:"override_rate"`
}

// VendorTaxSettingView is a platform rate as a vendor sees it: the platform
// defaults plus the vendor's own setting when one exists.
type VendorTaxSettingView struct {
	TaxRate       TaxRate           `json:"tax_rate"`
	Setting       *VendorTaxSetting `json:"setting,omitempty"`
	EffectiveRate decimal.Decimal   `json:"effective_rate"`
	IsEnabled     bool              `json:"is_enabled"`
}

type CreateExemptionRequest struct {
	TaxRateID     string              `json:"tax_rate_id"`
	Name          string              `json:"name"`
	ExemptionType ExemptionType       `json:"exemption_type"`
	Conditions    ExemptionConditions `json:"conditions"`
	ValidFrom     *time.Time          `json:"valid_from"`
	ValidTo       *time.Time          `json:"valid_to"`
	IsActive      *bool               `json:"is_active"`
}

type ListExemptionsRequest struct {
	TaxRateID string
	IsActive  *bool
}

type UpdateExemptionRequest struct {
	ID         string               `json:"-"`
	Name       *string              `json:"name,omitempty"`
	Conditions *ExemptionConditions `json:"conditions,omitempty"`
	ValidFrom  *time.Time           `json:"valid_from,omitempty"`
	ValidTo    *time.Time           `json:"valid_to,omitempty"`
	ClearFrom  bool                 `json:"clear_valid_from,omitempty"`
	ClearTo    bool                 `json:"clear_valid_to,omitempty"`
	IsActive   *bool                `json:"is_active,omitempty"`
}

type CalculateRequest struct {
	ServiceType      string           `json:"service_type"`
	Amount           decimal.Decimal  `json:"amount"`
	Multiplier       *decimal.Decimal `json:"multiplier"`
	IsForeigner      bool             `json:"is_foreigner"`
	GuestNationality string           `json:"guest_nationality"`
	BookingType      string           `json:"booking_type"`
	PromoCode        string           `json:"promo_code"`
	TaxRateID        string           `json:"tax_rate_id"`
	Date             *time.Time       `json:"date"`
}

type CalculateLine struct {
	TaxRateID   string          `json:"tax_rate_id"`
	TaxName     string          `json:"tax_name"`
	Code        string          `json:"code"`
	Rate        decimal.Decimal `json:"rate"`
	RateType    RateType        `json:"rate_type"`
	Amount      decimal.Decimal `json:"amount"`
	IsInclusive bool            `json:"is_inclusive"`
}

type CalculateResponse struct {
	Lines           []CalculateLine `json:"lines"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	InclusiveAmount decimal.Decimal `json:"inclusive_amount"`
	Exempted        []string        `json:"exempted,omitempty"`
}
