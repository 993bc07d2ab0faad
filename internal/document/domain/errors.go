package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid_document_id")
	ErrInvalidVendor      = errors.New("invalid_vendor")
	ErrInvalidKind        = errors.New("invalid_document_kind")
	ErrInvalidStatus      = errors.New("invalid_document_status")
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidCustomer    = errors.New("invalid_customer_name")
	ErrInvalidItemType    = errors.New("invalid_item_type")
	ErrInvalidUnit        = errors.New("invalid_unit")
	ErrInvalidDescription = errors.New("invalid_item_description")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidDiscount    = errors.New("invalid_discount")
	ErrInvalidTaxRateID   = errors.New("invalid_tax_rate_id")
	ErrNotFound           = errors.New("document_not_found")
	ErrDocumentNotDraft   = errors.New("document_not_draft")
	ErrDocumentEmpty      = errors.New("document_has_no_items")
	ErrDocumentNotIssued  = errors.New("document_not_finalized")
	ErrDocumentVoid       = errors.New("document_already_void")
	ErrNotQuotation       = errors.New("document_not_quotation")
	ErrQuotationExpired   = errors.New("quotation_expired")
	ErrNotAccepted        = errors.New("quotation_not_accepted")
	ErrAlreadyConverted   = errors.New("quotation_already_converted")
)
