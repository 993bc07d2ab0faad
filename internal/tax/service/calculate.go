package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/vendorbill/internal/tax/engine"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("vendorbill/tax")

// LoadCatalog returns the active platform rates plus the vendor's settings
// and active exemptions. A zero vendor gets the bare platform catalog.
func (s *Service) LoadCatalog(ctx context.Context, vendorID snowflake.ID) (*taxdomain.Catalog, error) {
	if cached, ok := s.cache.Get(ctx, vendorID); ok {
		return cached, nil
	}

	ctx, span := tracer.Start(ctx, "tax.load_catalog")
	defer span.End()

	rates, err := s.repo.ListRates(ctx, taxdomain.RateFilter{SortBy: "created_at", OrderBy: "asc"})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	catalog := &taxdomain.Catalog{
		Rates:      rates,
		Settings:   []taxdomain.VendorTaxSetting{},
		Exemptions: []taxdomain.TaxExemption{},
	}

	if vendorID != 0 {
		settings, err := s.repo.ListVendorSettings(ctx, vendorID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		active := true
		exemptions, err := s.repo.ListExemptions(ctx, vendorID, taxdomain.ExemptionFilter{IsActive: &active})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		catalog.Settings = settings
		catalog.Exemptions = exemptions
	}

	s.cache.Set(ctx, vendorID, catalog)
	return catalog, nil
}

func (s *Service) Calculate(ctx context.Context, req taxdomain.CalculateRequest) (*taxdomain.CalculateResponse, error) {
	serviceType, ok := taxdomain.ParseServiceType(req.ServiceType)
	if !ok {
		return nil, taxdomain.ErrInvalidServiceType
	}
	if req.Amount.IsNegative() {
		return nil, taxdomain.ErrInvalidTaxableAmount
	}

	ctx, span := tracer.Start(ctx, "tax.calculate")
	defer span.End()
	span.SetAttributes(attribute.String("tax.service_type", string(serviceType)))

	vendorID, _ := vendorcontext.VendorIDFromContext(ctx)
	catalog, err := s.LoadCatalog(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	evalReq := engine.Request{
		ServiceType:      serviceType,
		TaxableAmount:    req.Amount,
		IsForeigner:      req.IsForeigner,
		GuestNationality: req.GuestNationality,
		BookingType:      req.BookingType,
		PromoCode:        req.PromoCode,
		At:               s.clock.Now(),
	}
	if req.Multiplier != nil {
		if req.Multiplier.IsNegative() {
			return nil, taxdomain.ErrInvalidTaxableAmount
		}
		evalReq.Multiplier = req.Multiplier
	}
	if req.Date != nil && !req.Date.IsZero() {
		evalReq.At = req.Date.UTC()
	}
	if raw := strings.TrimSpace(req.TaxRateID); raw != "" {
		rateID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		evalReq.TaxRateID = &rateID
	}

	result := engine.EvaluateCatalog(evalReq, catalog).Rounded()
	s.recordEvaluation(ctx, serviceType, result)

	return &taxdomain.CalculateResponse{
		Lines: lo.Map(result.Lines, func(line engine.Line, _ int) taxdomain.CalculateLine {
			return taxdomain.CalculateLine{
				TaxRateID:   line.TaxRateID.String(),
				TaxName:     line.TaxName,
				Code:        line.Code,
				Rate:        line.Rate,
				RateType:    line.RateType,
				Amount:      line.Amount,
				IsInclusive: line.IsInclusive,
			}
		}),
		TaxAmount:       result.TaxAmount,
		InclusiveAmount: result.InclusiveAmount,
		Exempted:        result.Exempted,
	}, nil
}

func (s *Service) recordEvaluation(ctx context.Context, serviceType taxdomain.ServiceType, result engine.Result) {
	outcome := result.Outcome()
	s.metrics.RecordTaxEvaluation(ctx, string(serviceType), outcome)
	s.prom.ObserveTaxEvaluation(outcome)
	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("tax evaluated",
			zap.String("service_type", string(serviceType)),
			zap.String("outcome", outcome),
			zap.String("tax_amount", result.TaxAmount.StringFixed(2)),
			zap.String("inclusive_amount", result.InclusiveAmount.StringFixed(2)),
		)
	}
}

