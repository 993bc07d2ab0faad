package domain

import "errors"

var (
	ErrInvalidKind     = errors.New("invalid_document_kind")
	ErrInvalidVendor   = errors.New("invalid_vendor")
	ErrInvalidTemplate = errors.New("invalid_number_template")
)
