package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/pkg/db"
	"github.com/smallbiznis/vendorbill/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rateColumns = `id, name, code, description, rate, rate_type, applies_to,
	applies_to_foreigners_only, is_inclusive, is_active, created_at, updated_at`

const exemptionColumns = `id, vendor_id, tax_rate_id, name, exemption_type, conditions,
	valid_from, valid_to, is_active, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) CreateRate(ctx context.Context, rate *taxdomain.TaxRate) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO tax_rates (`+rateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.Name,
		rate.Code,
		rate.Description,
		rate.Rate,
		rate.RateType,
		rate.AppliesTo,
		rate.AppliesToForeignersOnly,
		rate.IsInclusive,
		rate.IsActive,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return taxdomain.ErrDuplicateTaxCode
	}
	return err
}

func (r *repository) UpdateRate(ctx context.Context, rate *taxdomain.TaxRate) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_rates
		 SET name = ?, description = ?, rate = ?, rate_type = ?, applies_to = ?,
		     applies_to_foreigners_only = ?, is_inclusive = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		rate.Name,
		rate.Description,
		rate.Rate,
		rate.RateType,
		rate.AppliesTo,
		rate.AppliesToForeignersOnly,
		rate.IsInclusive,
		rate.IsActive,
		rate.UpdatedAt,
		rate.ID,
	).Error
}

func (r *repository) FindRateByID(ctx context.Context, id snowflake.ID) (*taxdomain.TaxRate, error) {
	var rate taxdomain.TaxRate
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM tax_rates WHERE id = ?`,
		id,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repository) ListRates(ctx context.Context, filter taxdomain.RateFilter) ([]taxdomain.TaxRate, error) {
	var items []taxdomain.TaxRate
	stmt := r.db.WithContext(ctx).Model(&taxdomain.TaxRate{})

	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"code":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpsertVendorSetting(ctx context.Context, setting *taxdomain.VendorTaxSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "tax_rate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "override_rate", "updated_at"}),
	}).Create(setting).Error
}

func (r *repository) FindVendorSetting(ctx context.Context, vendorID, taxRateID snowflake.ID) (*taxdomain.VendorTaxSetting, error) {
	var setting taxdomain.VendorTaxSetting
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND tax_rate_id = ?", vendorID, taxRateID).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repository) ListVendorSettings(ctx context.Context, vendorID snowflake.ID) ([]taxdomain.VendorTaxSetting, error) {
	var items []taxdomain.VendorTaxSetting
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("tax_rate_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DeleteVendorSetting(ctx context.Context, vendorID, taxRateID snowflake.ID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("vendor_id = ? AND tax_rate_id = ?", vendorID, taxRateID).
		Delete(&taxdomain.VendorTaxSetting{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateExemption(ctx context.Context, exemption *taxdomain.TaxExemption) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tax_exemptions (`+exemptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exemption.ID,
		exemption.VendorID,
		exemption.TaxRateID,
		exemption.Name,
		exemption.ExemptionType,
		exemption.Conditions,
		exemption.ValidFrom,
		exemption.ValidTo,
		exemption.IsActive,
		exemption.CreatedAt,
		exemption.UpdatedAt,
	).Error
}

func (r *repository) UpdateExemption(ctx context.Context, exemption *taxdomain.TaxExemption) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_exemptions
		 SET name = ?, conditions = ?, valid_from = ?, valid_to = ?, is_active = ?, updated_at = ?
		 WHERE vendor_id = ? AND id = ?`,
		exemption.Name,
		exemption.Conditions,
		exemption.ValidFrom,
		exemption.ValidTo,
		exemption.IsActive,
		exemption.UpdatedAt,
		exemption.VendorID,
		exemption.ID,
	).Error
}

func (r *repository) FindExemptionByID(ctx context.Context, vendorID, id snowflake.ID) (*taxdomain.TaxExemption, error) {
	var exemption taxdomain.TaxExemption
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+exemptionColumns+` FROM tax_exemptions WHERE vendor_id = ? AND id = ?`,
		vendorID,
		id,
	).Scan(&exemption).Error
	if err != nil {
		return nil, err
	}
	if exemption.ID == 0 {
		return nil, nil
	}
	return &exemption, nil
}

func (r *repository) ListExemptions(ctx context.Context, vendorID snowflake.ID, filter taxdomain.ExemptionFilter) ([]taxdomain.TaxExemption, error) {
	var items []taxdomain.TaxExemption
	stmt := r.db.WithContext(ctx).
		Model(&taxdomain.TaxExemption{}).
		Where("vendor_id = ?", vendorID)

	if filter.TaxRateID != 0 {
		stmt = stmt.Where("tax_rate_id = ?", filter.TaxRateID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
