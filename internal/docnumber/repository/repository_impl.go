package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) docnumberdomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) docnumberdomain.Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Ensure(ctx context.Context, counter *docnumberdomain.Counter) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(counter).Error
}

func (r *repository) Find(ctx context.Context, vendorID snowflake.ID, kind docnumberdomain.Kind) (*docnumberdomain.Counter, error) {
	var counter docnumberdomain.Counter
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND kind = ?", vendorID, kind).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// Increment relies on the UPDATE taking the row lock, so concurrent
// allocators for the same counter queue up behind the first transaction.
func (r *repository) Increment(ctx context.Context, vendorID snowflake.ID, kind docnumberdomain.Kind, now time.Time) (*docnumberdomain.Counter, error) {
	res := r.db.WithContext(ctx).
		Model(&docnumberdomain.Counter{}).
		Where("vendor_id = ? AND kind = ?", vendorID, kind).
		Updates(map[string]any{
			"next_number": gorm.Expr("next_number + 1"),
			"updated_at":  now.UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Find(ctx, vendorID, kind)
}
