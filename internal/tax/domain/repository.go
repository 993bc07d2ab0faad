package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type RateFilter struct {
	Code     string
	IsActive *bool
	SortBy   string
	OrderBy  string
}

type ExemptionFilter struct {
	TaxRateID snowflake.ID
	IsActive  *bool
}

type Repository interface {
	CreateRate(ctx context.Context, rate *TaxRate) error
	UpdateRate(ctx context.Context, rate *TaxRate) error
	FindRateByID(ctx context.Context, id snowflake.ID) (*TaxRate, error)
	ListRates(ctx context.Context, filter RateFilter) ([]TaxRate, error)

	UpsertVendorSetting(ctx context.Context, setting *VendorTaxSetting) error
	FindVendorSetting(ctx context.Context, vendorID, taxRateID snowflake.ID) (*VendorTaxSetting, error)
	ListVendorSettings(ctx context.Context, vendorID snowflake.ID) ([]VendorTaxSetting, error)
	DeleteVendorSetting(ctx context.Context, vendorID, taxRateID snowflake.ID) (bool, error)

	CreateExemption(ctx context.Context, exemption *TaxExemption) error
	UpdateExemption(ctx context.Context, exemption *TaxExemption) error
	FindExemptionByID(ctx context.Context, vendorID, id snowflake.ID) (*TaxExemption, error)
	ListExemptions(ctx context.Context, vendorID snowflake.ID, filter ExemptionFilter) ([]TaxExemption, error)
}
