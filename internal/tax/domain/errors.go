package domain

import "errors"

var (
	ErrInvalidVendor         = errors.New("invalid_vendor")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrInvalidTaxCode        = errors.New("invalid_tax_code")
	ErrDuplicateTaxCode      = errors.New("duplicate_tax_code")
	ErrInvalidTaxRate        = errors.New("invalid_tax_rate")
	ErrInvalidRateType       = errors.New("invalid_rate_type")
	ErrInvalidServiceType    = errors.New("invalid_service_type")
	ErrInvalidExemptionType  = errors.New("invalid_exemption_type")
	ErrInvalidConditions     = errors.New("invalid_exemption_conditions")
	ErrInvalidValidityWindow = errors.New("invalid_validity_window")
	ErrInvalidTaxableAmount  = errors.New("invalid_taxable_amount")
	ErrTaxRateNotFound       = errors.New("tax_rate_not_found")
	ErrVendorSettingNotFound = errors.New("vendor_tax_setting_not_found")
	ErrTaxExemptionNotFound  = errors.New("tax_exemption_not_found")
)
