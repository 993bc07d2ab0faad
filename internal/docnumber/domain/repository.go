package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Ensure inserts the counter unless one already exists for its vendor
	// and kind.
	Ensure(ctx context.Context, counter *Counter) error
	Find(ctx context.Context, vendorID snowflake.ID, kind Kind) (*Counter, error)
	// Increment bumps next_number, stamps updated_at with now and returns
	// the counter as it is after the bump.
	Increment(ctx context.Context, vendorID snowflake.ID, kind Kind, now time.Time) (*Counter, error)
}
