package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ServiceType classifies what a document or line is selling. Tax rates
// declare the service types they apply to.
type ServiceType string

const (
	ServiceTypeAccommodation ServiceType = "accommodation"
	ServiceTypeActivity      ServiceType = "activity"
	ServiceTypeTour          ServiceType = "tour"
	ServiceTypeTransport     ServiceType = "transport"
	ServiceTypeFoodBeverage  ServiceType = "food_beverage"
	ServiceTypeOther         ServiceType = "other"
)

var serviceTypes = []ServiceType{
	ServiceTypeAccommodation,
	ServiceTypeActivity,
	ServiceTypeTour,
	ServiceTypeTransport,
	ServiceTypeFoodBeverage,
	ServiceTypeOther,
}

func ParseServiceType(raw string) (ServiceType, bool) {
	st := ServiceType(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(serviceTypes, st) {
		return st, true
	}
	return "", false
}

type RateType string

const (
	RateTypePercentage RateType = "percentage"
	RateTypeFixed      RateType = "fixed"
)

type ExemptionType string

const (
	ExemptionGuestNationality ExemptionType = "guest_nationality"
	ExemptionBookingType      ExemptionType = "booking_type"
	ExemptionPromoCode        ExemptionType = "promo_code"
)

// TaxRate is a platform-owned tax. Vendors may opt out or override the rate
// through VendorTaxSetting. Code is engine facing and immutable once created.
type TaxRate struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Code        string          `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Rate        decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"rate"`
	RateType    RateType        `gorm:"column:rate_type;type:text;not null" json:"rate_type"`
	AppliesTo   pq.StringArray  `gorm:"column:applies_to;type:text[]" json:"applies_to"`

	AppliesToForeignersOnly bool `gorm:"column:applies_to_foreigners_only;not null;default:false" json:"applies_to_foreigners_only"`
	IsInclusive             bool `gorm:"column:is_inclusive;not null;default:false" json:"is_inclusive"`
	IsActive                bool `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxRate) TableName() string { return "tax_rates" }

func (t *TaxRate) AppliesToService(st ServiceType) bool {
	for _, item := range t.AppliesTo {
		if strings.EqualFold(strings.TrimSpace(item), string(st)) {
			return true
		}
	}
	return false
}

func (t *TaxRate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(t.Code) == "" {
		return ErrInvalidTaxCode
	}
	if t.RateType != RateTypePercentage && t.RateType != RateTypeFixed {
		return ErrInvalidRateType
	}
	if t.Rate.IsNegative() {
		return ErrInvalidTaxRate
	}
	if t.RateType == RateTypePercentage && t.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidTaxRate
	}
	if len(t.AppliesTo) == 0 {
		return ErrInvalidServiceType
	}
	for _, item := range t.AppliesTo {
		if _, ok := ParseServiceType(item); !ok {
			return ErrInvalidServiceType
		}
	}
	return nil
}

// VendorTaxSetting is a vendor's opt-in and optional rate override for a
// platform tax. No row means the platform defaults apply.
type VendorTaxSetting struct {
	ID           snowflake.ID        `gorm:"primaryKey" json:"id"`
	VendorID     snowflake.ID        `gorm:"column:vendor_id;not null" json:"vendor_id"`
	TaxRateID    snowflake.ID        `gorm:"column:tax_rate_id;not null" json:"tax_rate_id"`
	IsEnabled    bool                `gorm:"column:is_enabled;not null" json:"is_enabled"`
	OverrideRate decimal.NullDecimal `gorm:"column:override_rate;type:numeric(12,4)" json:"override_rate"`
	CreatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (VendorTaxSetting) TableName() string { return "vendor_tax_settings" }

type ExemptionConditions struct {
	Nationalities []string `json:"nationalities,omitempty"`
	BookingTypes  []string `json:"booking_types,omitempty"`
	PromoCodes    []string `json:"promo_codes,omitempty"`
}

// TaxExemption waives a tax when the guest, booking or promo matches its
// conditions inside the optional validity window.
type TaxExemption struct {
	ID            snowflake.ID                            `gorm:"primaryKey" json:"id"`
	VendorID      snowflake.ID                            `gorm:"column:vendor_id;not null;index" json:"vendor_id"`
	TaxRateID     snowflake.ID                            `gorm:"column:tax_rate_id;not null" json:"tax_rate_id"`
	Name          string                                  `gorm:"type:text;not null" json:"name"`
	ExemptionType ExemptionType                           `gorm:"column:exemption_type;type:text;not null" json:"exemption_type"`
	Conditions    datatypes.JSONType[ExemptionConditions] `gorm:"column:conditions" json:"conditions"`
	ValidFrom     *time.Time                              `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidTo       *time.Time                              `gorm:"column:valid_to" json:"valid_to,omitempty"`
	IsActive      bool                                    `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time                               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxExemption) TableName() string { return "tax_exemptions" }

// Covers reports whether at falls inside the inclusive validity window.
// Missing bounds are open.
func (e *TaxExemption) Covers(at time.Time) bool {
	if e.ValidFrom != nil && at.Before(*e.ValidFrom) {
		return false
	}
	if e.ValidTo != nil && at.After(*e.ValidTo) {
		return false
	}
	return true
}

// Catalog is everything the tax engine needs to price taxes for one vendor.
type Catalog struct {
	Rates      []TaxRate          `json:"rates"`
	Settings   []VendorTaxSetting `json:"settings"`
	Exemptions []TaxExemption     `json:"exemptions"`
}
