package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Preview(ctx context.Context, kind Kind) (*Preview, error)
	// Allocate consumes the next number. When tx is non-nil the counter
	// update joins that transaction, so a rollback releases the number.
	Allocate(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, kind Kind, issuedAt time.Time) (*Allocation, error)
}
