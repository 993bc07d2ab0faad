package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendorbill/internal/clock"
	obsmetrics "github.com/smallbiznis/vendorbill/internal/observability/metrics"
	taxcache "github.com/smallbiznis/vendorbill/internal/tax/cache"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    taxdomain.Repository
	Cache   taxcache.CatalogCache
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
	Prom    *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	repo    taxdomain.Repository
	cache   taxcache.CatalogCache
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	prom    *telemetry.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:     p.Log.Named("tax.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		cache:   p.Cache,
		clock:   p.Clock,
		metrics: p.Metrics,
		prom:    p.Prom,
	}
}

func (s *Service) CreateRate(ctx context.Context, req taxdomain.CreateRateRequest) (*taxdomain.TaxRate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, taxdomain.ErrInvalidName
	}

	code := normalizeCode(req.Code)
	if code == "" {
		code = normalizeCode(name)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.clock.Now()
	record := &taxdomain.TaxRate{
		ID:                      s.genID.Generate(),
		Name:                    name,
		Code:                    code,
		Description:             trimmedOrNil(req.Description),
		Rate:                    req.Rate,
		RateType:                normalizeRateType(req.RateType),
		AppliesTo:               normalizeServiceTypes(req.AppliesTo),
		AppliesToForeignersOnly: req.AppliesToForeignersOnly,
		IsInclusive:             req.IsInclusive,
		IsActive:                isActive,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRate(ctx, record); err != nil {
		return nil, err
	}
	s.cache.InvalidateAll(ctx)

	s.log.Info("tax rate created",
		zap.String("tax_rate_id", record.ID.String()),
		zap.String("code", record.Code),
	)
	return record, nil
}

func (s *Service) ListRates(ctx context.Context, req taxdomain.ListRatesRequest) ([]taxdomain.TaxRate, error) {
	filter := taxdomain.RateFilter{
		Code:     normalizeCode(req.Code),
		IsActive: req.IsActive,
		SortBy:   strings.TrimSpace(req.SortBy),
		OrderBy:  strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.ListRates(ctx, filter)
	if err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(req.ServiceType); raw != "" {
		st, ok := taxdomain.ParseServiceType(raw)
		if !ok {
			return nil, taxdomain.ErrInvalidServiceType
		}
		items = lo.Filter(items, func(item taxdomain.TaxRate, _ int) bool {
			return item.AppliesToService(st)
		})
	}
	return items, nil
}

func (s *Service) UpdateRate(ctx context.Context, req taxdomain.UpdateRateRequest) (*taxdomain.TaxRate, error) {
	item, err := s.findRate(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		item.Description = trimmedOrNil(req.Description)
	}
	if req.Rate != nil {
		item.Rate = *req.Rate
	}
	if req.RateType != nil {
		item.RateType = normalizeRateType(*req.RateType)
	}
	if req.AppliesTo != nil {
		item.AppliesTo = normalizeServiceTypes(req.AppliesTo)
	}
	if req.AppliesToForeignersOnly != nil {
		item.AppliesToForeignersOnly = *req.AppliesToForeignersOnly
	}
	if req.IsInclusive != nil {
		item.IsInclusive = *req.IsInclusive
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	item.UpdatedAt = s.clock.Now()
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRate(ctx, item); err != nil {
		return nil, err
	}
	s.cache.InvalidateAll(ctx)
	return item, nil
}

func (s *Service) DeactivateRate(ctx context.Context, id string) (*taxdomain.TaxRate, error) {
	item, err := s.findRate(ctx, id)
	if err != nil {
		return nil, err
	}

	item.IsActive = false
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateRate(ctx, item); err != nil {
		return nil, err
	}
	s.cache.InvalidateAll(ctx)

	s.log.Info("tax rate deactivated", zap.String("tax_rate_id", item.ID.String()))
	return item, nil
}

func (s *Service) UpsertVendorSetting(ctx context.Context, req taxdomain.UpsertVendorSettingRequest) (*taxdomain.VendorTaxSetting, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidVendor
	}

	rate, err := s.findRate(ctx, req.TaxRateID)
	if err != nil {
		return nil, err
	}

	var override decimal.NullDecimal
	if req.OverrideRate != nil {
		if req.OverrideRate.IsNegative() {
			return nil, taxdomain.ErrInvalidTaxRate
		}
		if rate.RateType == taxdomain.RateTypePercentage && req.OverrideRate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, taxdomain.ErrInvalidTaxRate
		}
		override = decimal.NewNullDecimal(*req.OverrideRate)
	}

	now := s.clock.Now()
	setting := &taxdomain.VendorTaxSetting{
		ID:           s.genID.Generate(),
		VendorID:     vendorID,
		TaxRateID:    rate.ID,
		IsEnabled:    req.IsEnabled,
		OverrideRate: override,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertVendorSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.cache.InvalidateVendor(ctx, vendorID)

	stored, err := s.repo.FindVendorSetting(ctx, vendorID, rate.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, taxdomain.ErrVendorSettingNotFound
	}
	return stored, nil
}

func (s *Service) ListVendorSettings(ctx context.Context) ([]taxdomain.VendorTaxSettingView, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidVendor
	}

	rates, err := s.repo.ListRates(ctx, taxdomain.RateFilter{SortBy: "code", OrderBy: "asc"})
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.ListVendorSettings(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	byRate := lo.KeyBy(settings, func(item taxdomain.VendorTaxSetting) snowflake.ID {
		return item.TaxRateID
	})

	views := make([]taxdomain.VendorTaxSettingView, 0, len(rates))
	for _, rate := range rates {
		view := taxdomain.VendorTaxSettingView{
			TaxRate:       rate,
			EffectiveRate: rate.Rate,
			IsEnabled:     rate.IsActive,
		}
		if setting, ok := byRate[rate.ID]; ok {
			view.Setting = &setting
			view.IsEnabled = setting.IsEnabled
			if setting.OverrideRate.Valid {
				view.EffectiveRate = setting.OverrideRate.Decimal
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) DeleteVendorSetting(ctx context.Context, taxRateID string) error {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return taxdomain.ErrInvalidVendor
	}
	rateID, err := parseID(taxRateID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteVendorSetting(ctx, vendorID, rateID)
	if err != nil {
		return err
	}
	if !deleted {
		return taxdomain.ErrVendorSettingNotFound
	}
	s.cache.InvalidateVendor(ctx, vendorID)
	return nil
}

func (s *Service) CreateExemption(ctx context.Context, req taxdomain.CreateExemptionRequest) (*taxdomain.TaxExemption, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidVendor
	}

	rate, err := s.findRate(ctx, req.TaxRateID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, taxdomain.ErrInvalidName
	}

	exemptionType := taxdomain.ExemptionType(strings.ToLower(strings.TrimSpace(string(req.ExemptionType))))
	conditions, err := normalizeConditions(exemptionType, req.Conditions)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(req.ValidFrom, req.ValidTo); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.clock.Now()
	record := &taxdomain.TaxExemption{
		ID:            s.genID.Generate(),
		VendorID:      vendorID,
		TaxRateID:     rate.ID,
		Name:          name,
		ExemptionType: exemptionType,
		Conditions:    datatypes.NewJSONType(conditions),
		ValidFrom:     utcOrNil(req.ValidFrom),
		ValidTo:       utcOrNil(req.ValidTo),
		IsActive:      isActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateExemption(ctx, record); err != nil {
		return nil, err
	}
	s.cache.InvalidateVendor(ctx, vendorID)
	return record, nil
}

func (s *Service) ListExemptions(ctx context.Context, req taxdomain.ListExemptionsRequest) ([]taxdomain.TaxExemption, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidVendor
	}

	filter := taxdomain.ExemptionFilter{IsActive: req.IsActive}
	if raw := strings.TrimSpace(req.TaxRateID); raw != "" {
		rateID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		filter.TaxRateID = rateID
	}
	return s.repo.ListExemptions(ctx, vendorID, filter)
}

func (s *Service) UpdateExemption(ctx context.Context, req taxdomain.UpdateExemptionRequest) (*taxdomain.TaxExemption, error) {
	item, err := s.findExemption(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, taxdomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Conditions != nil {
		conditions, err := normalizeConditions(item.ExemptionType, *req.Conditions)
		if err != nil {
			return nil, err
		}
		item.Conditions = datatypes.NewJSONType(conditions)
	}
	if req.ClearFrom {
		item.ValidFrom = nil
	} else if req.ValidFrom != nil {
		item.ValidFrom = utcOrNil(req.ValidFrom)
	}
	if req.ClearTo {
		item.ValidTo = nil
	} else if req.ValidTo != nil {
		item.ValidTo = utcOrNil(req.ValidTo)
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := validateWindow(item.ValidFrom, item.ValidTo); err != nil {
		return nil, err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateExemption(ctx, item); err != nil {
		return nil, err
	}
	s.cache.InvalidateVendor(ctx, item.VendorID)
	return item, nil
}

func (s *Service) DeactivateExemption(ctx context.Context, id string) (*taxdomain.TaxExemption, error) {
	item, err := s.findExemption(ctx, id)
	if err != nil {
		return nil, err
	}

	item.IsActive = false
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateExemption(ctx, item); err != nil {
		return nil, err
	}
	s.cache.InvalidateVendor(ctx, item.VendorID)
	return item, nil
}

func (s *Service) findRate(ctx context.Context, id string) (*taxdomain.TaxRate, error) {
	rateID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindRateByID(ctx, rateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrTaxRateNotFound
	}
	return item, nil
}

func (s *Service) findExemption(ctx context.Context, id string) (*taxdomain.TaxExemption, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidVendor
	}
	exemptionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindExemptionByID(ctx, vendorID, exemptionID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrTaxExemptionNotFound
	}
	return item, nil
}
