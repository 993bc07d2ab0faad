package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
)

type calculateTaxRequest struct {
	ServiceType string           `json:"service_type" binding:"required,service_type"`
	Amount      decimal.Decimal  `json:"amount" binding:"gte=0"`
	Multiplier  *decimal.Decimal `json:"multiplier" binding:"omitempty,gte=0"`
	TaxRateID   string           `json:"tax_rate_id"`
	Date        *string          `json:"date"`
	guestRequest
}

type createTaxRateRequest struct {
	Name                    string          `json:"name" binding:"required"`
	Code                    string          `json:"code"`
	Description             *string         `json:"description"`
	Rate                    decimal.Decimal `json:"rate" binding:"gte=0"`
	RateType                string          `json:"rate_type" binding:"required,oneof=percentage fixed"`
	AppliesTo               []string        `json:"applies_to" binding:"required,min=1,dive,service_type"`
	AppliesToForeignersOnly bool            `json:"applies_to_foreigners_only"`
	IsInclusive             bool            `json:"is_inclusive"`
	IsActive                *bool           `json:"is_active"`
}

type updateTaxRateRequest struct {
	Name                    *string          `json:"name,omitempty"`
	Description             *string          `json:"description,omitempty"`
	Rate                    *decimal.Decimal `json:"rate,omitempty" binding:"omitempty,gte=0"`
	RateType                *string          `json:"rate_type,omitempty" binding:"omitempty,oneof=percentage fixed"`
	AppliesTo               []string         `json:"applies_to,omitempty" binding:"omitempty,min=1,dive,service_type"`
	AppliesToForeignersOnly *bool            `json:"applies_to_foreigners_only,omitempty"`
	IsInclusive             *bool            `json:"is_inclusive,omitempty"`
	IsActive                *bool            `json:"is_active,omitempty"`
}

type upsertVendorSettingRequest struct {
	IsEnabled    bool             `json:"is_enabled"`
	OverrideRate *decimal.Decimal `json:"override_rate" binding:"omitempty,gte=0"`
}

type createExemptionRequest struct {
	TaxRateID     string                        `json:"tax_rate_id" binding:"required"`
	Name          string                        `json:"name" binding:"required"`
	ExemptionType string                        `json:"exemption_type" binding:"required,oneof=guest_nationality booking_type promo_code"`
	Conditions    taxdomain.ExemptionConditions `json:"conditions"`
	ValidFrom     *string                       `json:"valid_from"`
	ValidTo       *string                       `json:"valid_to"`
	IsActive      *bool                         `json:"is_active"`
}

type updateExemptionRequest struct {
	Name       *string                        `json:"name,omitempty"`
	Conditions *taxdomain.ExemptionConditions `json:"conditions,omitempty"`
	ValidFrom  *string                        `json:"valid_from,omitempty"`
	ValidTo    *string                        `json:"valid_to,omitempty"`
	ClearFrom  bool                           `json:"clear_valid_from,omitempty"`
	ClearTo    bool                           `json:"clear_valid_to,omitempty"`
	IsActive   *bool                          `json:"is_active,omitempty"`
}

func (s *Server) CalculateTax(c *gin.Context) {
	var req calculateTaxRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	date, err := parseOptionalTime(req.Date, false)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.taxSvc.Calculate(c.Request.Context(), taxdomain.CalculateRequest{
		ServiceType:      strings.TrimSpace(req.ServiceType),
		Amount:           req.Amount,
		Multiplier:       req.Multiplier,
		IsForeigner:      req.IsForeigner,
		GuestNationality: strings.TrimSpace(req.GuestNationality),
		BookingType:      strings.TrimSpace(req.BookingType),
		PromoCode:        strings.TrimSpace(req.PromoCode),
		TaxRateID:        strings.TrimSpace(req.TaxRateID),
		Date:             date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) CreateTaxRate(c *gin.Context) {
	var req createTaxRateRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.taxSvc.CreateRate(c.Request.Context(), taxdomain.CreateRateRequest{
		Name:                    strings.TrimSpace(req.Name),
		Code:                    strings.TrimSpace(req.Code),
		Description:             trimString(req.Description),
		Rate:                    req.Rate,
		RateType:                taxdomain.RateType(strings.TrimSpace(req.RateType)),
		AppliesTo:               req.AppliesTo,
		AppliesToForeignersOnly: req.AppliesToForeignersOnly,
		IsInclusive:             req.IsInclusive,
		IsActive:                req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, resp)
}

func (s *Server) ListTaxRates(c *gin.Context) {
	var query struct {
		Code        string `form:"code"`
		ServiceType string `form:"service_type"`
		IsActive    string `form:"is_active"`
		SortBy      string `form:"sort_by"`
		OrderBy     string `form:"order_by"`
	}
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "invalid is_active"))
		return
	}

	resp, err := s.taxSvc.ListRates(c.Request.Context(), taxdomain.ListRatesRequest{
		Code:        strings.TrimSpace(query.Code),
		ServiceType: strings.TrimSpace(query.ServiceType),
		IsActive:    isActive,
		SortBy:      strings.TrimSpace(query.SortBy),
		OrderBy:     strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateTaxRate(c *gin.Context) {
	var req updateTaxRateRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	var rateType *taxdomain.RateType
	if req.RateType != nil {
		trimmed := taxdomain.RateType(strings.TrimSpace(*req.RateType))
		rateType = &trimmed
	}

	resp, err := s.taxSvc.UpdateRate(c.Request.Context(), taxdomain.UpdateRateRequest{
		ID:                      strings.TrimSpace(c.Param("id")),
		Name:                    trimString(req.Name),
		Description:             trimString(req.Description),
		Rate:                    req.Rate,
		RateType:                rateType,
		AppliesTo:               req.AppliesTo,
		AppliesToForeignersOnly: req.AppliesToForeignersOnly,
		IsInclusive:             req.IsInclusive,
		IsActive:                req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeactivateTaxRate(c *gin.Context) {
	resp, err := s.taxSvc.DeactivateRate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ListVendorTaxSettings(c *gin.Context) {
	resp, err := s.taxSvc.ListVendorSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpsertVendorTaxSetting(c *gin.Context) {
	var req upsertVendorSettingRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.taxSvc.UpsertVendorSetting(c.Request.Context(), taxdomain.UpsertVendorSettingRequest{
		TaxRateID:    strings.TrimSpace(c.Param("tax_rate_id")),
		IsEnabled:    req.IsEnabled,
		OverrideRate: req.OverrideRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeleteVendorTaxSetting(c *gin.Context) {
	if err := s.taxSvc.DeleteVendorSetting(c.Request.Context(), strings.TrimSpace(c.Param("tax_rate_id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, gin.H{"deleted": true})
}

func (s *Server) CreateTaxExemption(c *gin.Context) {
	var req createExemptionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	validFrom, err := parseOptionalTime(req.ValidFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("valid_from", "invalid_valid_from", "invalid valid_from"))
		return
	}
	validTo, err := parseOptionalTime(req.ValidTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("valid_to", "invalid_valid_to", "invalid valid_to"))
		return
	}

	resp, err := s.taxSvc.CreateExemption(c.Request.Context(), taxdomain.CreateExemptionRequest{
		TaxRateID:     strings.TrimSpace(req.TaxRateID),
		Name:          strings.TrimSpace(req.Name),
		ExemptionType: taxdomain.ExemptionType(strings.TrimSpace(req.ExemptionType)),
		Conditions:    req.Conditions,
		ValidFrom:     validFrom,
		ValidTo:       validTo,
		IsActive:      req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, resp)
}

func (s *Server) ListTaxExemptions(c *gin.Context) {
	var query struct {
		TaxRateID string `form:"tax_rate_id"`
		IsActive  string `form:"is_active"`
	}
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "invalid is_active"))
		return
	}

	resp, err := s.taxSvc.ListExemptions(c.Request.Context(), taxdomain.ListExemptionsRequest{
		TaxRateID: strings.TrimSpace(query.TaxRateID),
		IsActive:  isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateTaxExemption(c *gin.Context) {
	var req updateExemptionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	validFrom, err := parseOptionalTime(req.ValidFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("valid_from", "invalid_valid_from", "invalid valid_from"))
		return
	}
	validTo, err := parseOptionalTime(req.ValidTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("valid_to", "invalid_valid_to", "invalid valid_to"))
		return
	}

	resp, err := s.taxSvc.UpdateExemption(c.Request.Context(), taxdomain.UpdateExemptionRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Name:       trimString(req.Name),
		Conditions: req.Conditions,
		ValidFrom:  validFrom,
		ValidTo:    validTo,
		ClearFrom:  req.ClearFrom,
		ClearTo:    req.ClearTo,
		IsActive:   req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeactivateTaxExemption(c *gin.Context) {
	resp, err := s.taxSvc.DeactivateExemption(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}
