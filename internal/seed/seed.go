package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CodeTGST          = "TGST"
	CodeSDF           = "SDF"
	CodeServiceCharge = "SERVICE_CHARGE"
)

// DefaultTaxRates is the platform catalog a fresh install starts with.
func DefaultTaxRates() []taxdomain.TaxRate {
	describe := func(s string) *string { return &s }
	return []taxdomain.TaxRate{
		{
			Name:        "Tourism GST",
			Code:        CodeTGST,
			Description: describe("Goods and services tax on accommodation"),
			Rate:        decimal.NewFromInt(12),
			RateType:    taxdomain.RateTypePercentage,
			AppliesTo:   pq.StringArray{string(taxdomain.ServiceTypeAccommodation)},
			IsActive:    true,
		},
		{
			Name:                    "Sustainable Development Fee",
			Code:                    CodeSDF,
			Description:             describe("Charged per night to foreign guests"),
			Rate:                    decimal.NewFromInt(1200),
			RateType:                taxdomain.RateTypeFixed,
			AppliesTo:               pq.StringArray{string(taxdomain.ServiceTypeAccommodation)},
			AppliesToForeignersOnly: true,
			IsActive:                true,
		},
		{
			Name:        "Service Charge",
			Code:        CodeServiceCharge,
			Description: describe("Included in activity and tour prices"),
			Rate:        decimal.NewFromInt(10),
			RateType:    taxdomain.RateTypePercentage,
			AppliesTo:   pq.StringArray{string(taxdomain.ServiceTypeActivity), string(taxdomain.ServiceTypeTour)},
			IsInclusive: true,
			IsActive:    true,
		},
	}
}

// EnsureDefaultCatalog inserts the default tax rates that are missing by
// code. Rates an operator already edited are left alone.
func EnsureDefaultCatalog(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	inserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, rate := range DefaultTaxRates() {
			rate.ID = node.Generate()
			rate.CreatedAt = now
			rate.UpdatedAt = now
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&rate)
			if result.Error != nil {
				return result.Error
			}
			inserted += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
