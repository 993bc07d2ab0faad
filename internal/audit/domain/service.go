package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record writes entry through tx so it commits with the change it
	// describes. A nil tx uses the service's own handle.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidVendor    = errors.New("invalid_vendor")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTarget    = errors.New("invalid_target")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
