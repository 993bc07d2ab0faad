package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/authorization"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/internal/observability"
	"github.com/smallbiznis/vendorbill/internal/ratelimit"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testVendorID = "1234567890"

type fakeDocumentService struct {
	documentdomain.Service

	created  *documentdomain.CreateRequest
	doc      *documentdomain.Document
	err      error
	list     documentdomain.ListResponse
	listReq  documentdomain.ListRequest
	vendorID snowflake.ID
}

func (f *fakeDocumentService) Create(ctx context.Context, req documentdomain.CreateRequest) (*documentdomain.Document, error) {
	f.created = &req
	f.vendorID, _ = vendorcontext.VendorIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeDocumentService) Get(ctx context.Context, id string) (*documentdomain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeDocumentService) List(ctx context.Context, req documentdomain.ListRequest) (documentdomain.ListResponse, error) {
	f.listReq = req
	return f.list, f.err
}

func (f *fakeDocumentService) Finalize(ctx context.Context, id string) (*documentdomain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeDocumentService) RenderPDF(ctx context.Context, id string) (*documentdomain.RenderedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &documentdomain.RenderedDocument{Filename: "invoice-INV-2025-0001.pdf", Content: []byte("%PDF-1.3 test")}, nil
}

type fakeTaxService struct {
	taxdomain.Service

	calculated *taxdomain.CalculateRequest
}

func (f *fakeTaxService) Calculate(ctx context.Context, req taxdomain.CalculateRequest) (*taxdomain.CalculateResponse, error) {
	f.calculated = &req
	return &taxdomain.CalculateResponse{
		Lines:           []taxdomain.CalculateLine{},
		TaxAmount:       decimal.RequireFromString("12"),
		InclusiveAmount: decimal.Zero,
	}, nil
}

func (f *fakeTaxService) CreateRate(ctx context.Context, req taxdomain.CreateRateRequest) (*taxdomain.TaxRate, error) {
	return &taxdomain.TaxRate{Name: req.Name, Code: "TGST"}, nil
}

type fakeAuditService struct {
	auditdomain.Service

	listReq auditdomain.ListRequest
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	f.listReq = req
	if _, ok := vendorcontext.VendorIDFromContext(ctx); !ok {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidVendor
	}
	return auditdomain.ListResponse{
		PageInfo: pagination.PageInfo{Page: 1, PageSize: 20, Total: 1},
		AuditLogs: []auditdomain.AuditLog{
			{ID: 9, VendorID: 1234567890, ActorRole: "vendor_admin", Action: "document.finalized", TargetType: "document", TargetID: "42"},
		},
	}, nil
}

type fakeNumberService struct {
	docnumberdomain.Service
}

func (f *fakeNumberService) Preview(ctx context.Context, kind docnumberdomain.Kind) (*docnumberdomain.Preview, error) {
	return &docnumberdomain.Preview{Kind: kind, Prefix: "QUO", NextNumber: 3, Number: "QUO-2025-0003"}, nil
}

type testServer struct {
	engine   *gin.Engine
	docs     *fakeDocumentService
	taxes    *fakeTaxService
	audit    *fakeAuditService
	registry *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter *ratelimit.VendorLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := config.Config{Bootstrap: config.BootstrapConfig{SeedAuthPolicies: true}}
	enforcer, err := authorization.NewEnforcer(db, cfg)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	engine := NewEngine(observability.Config{LogLevel: "info", Environment: "production"}, telemetry.NewMetrics(registry), registry)

	ts := &testServer{
		engine:   engine,
		docs:     &fakeDocumentService{},
		taxes:    &fakeTaxService{},
		audit:    &fakeAuditService{},
		registry: registry,
	}
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Log:         zap.NewNop(),
		AuthzSvc:    authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		TaxSvc:      ts.taxes,
		DocumentSvc: ts.docs,
		NumberSvc:   &fakeNumberService{},
		AuditSvc:    ts.audit,
		Limiter:     limiter,
	})
	return ts
}

func (ts *testServer) do(method, path, role, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(vendorcontext.VendorHeader, testVendorID)
	if role != "" {
		req.Header.Set(vendorcontext.RoleHeader, role)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success      bool                 `json:"success"`
	Data         json.RawMessage      `json:"data"`
	ErrorMessage string               `json:"error_message"`
	Errors       []ValidationError    `json:"errors"`
	Pagination   *pagination.PageInfo `json:"pagination"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLineTotal(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/pricing/line-total", vendorcontext.RoleVendorStaff,
		`{"quantity":"2","unit_price":"100","discount_percent":"10","discount_amount":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.True(t, env.Success)
	var data struct {
		Subtotal       decimal.Decimal `json:"subtotal"`
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		LineTotal      decimal.Decimal `json:"line_total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Subtotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, data.DiscountAmount.Equal(decimal.NewFromInt(25)))
	assert.True(t, data.LineTotal.Equal(decimal.NewFromInt(175)))
}

func TestLineTotal_RejectsDiscountOverHundredPercent(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/pricing/line-total", vendorcontext.RoleVendorStaff,
		`{"quantity":"1","unit_price":"100","discount_percent":"150"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	assert.False(t, env.Success)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "discount_percent", env.Errors[0].Field)
	assert.Equal(t, "lte", env.Errors[0].Code)
}

func TestMissingRoleIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/pricing/line-total", "", `{"quantity":"1","unit_price":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestStaffCannotManagePlatformRates(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"Tourism GST","rate":"12","rate_type":"percentage","applies_to":["accommodation"]}`

	rec := ts.do(http.MethodPost, "/api/v1/tax-rates", vendorcontext.RoleVendorStaff, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/tax-rates", vendorcontext.RolePlatformAdmin, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateTaxRate_UnknownServiceType(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/tax-rates", vendorcontext.RolePlatformAdmin,
		`{"name":"Tourism GST","rate":"12","rate_type":"percentage","applies_to":["spa"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "applies_to[0]", env.Errors[0].Field)
	assert.Equal(t, "service_type", env.Errors[0].Code)
}

func TestCalculateTax_PassesGuestContext(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/taxes/calculate", vendorcontext.RoleVendorStaff,
		`{"service_type":"accommodation","amount":"100","is_foreigner":true,"guest_nationality":"sg","date":"2025-05-20"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, ts.taxes.calculated)
	assert.True(t, ts.taxes.calculated.IsForeigner)
	assert.Equal(t, "sg", ts.taxes.calculated.GuestNationality)
	require.NotNil(t, ts.taxes.calculated.Date)
	assert.Equal(t, 20, ts.taxes.calculated.Date.Day())
}

func TestDocuments_RequireVendor(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set(vendorcontext.RoleHeader, vendorcontext.RoleVendorStaff)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "invalid_vendor", env.Errors[0].Code)
}

func TestMalformedVendorHeader(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set(vendorcontext.VendorHeader, "not-a-number")
	req.Header.Set(vendorcontext.RoleHeader, vendorcontext.RoleVendorStaff)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDocument(t *testing.T) {
	ts := newTestServer(t)
	ts.docs.doc = &documentdomain.Document{ID: 1, Kind: documentdomain.KindQuotation, Status: documentdomain.StatusDraft}

	body := `{
		"kind": "quotation",
		"service_type": "accommodation",
		"customer_name": " Ayu ",
		"is_foreigner": true,
		"guest_nationality": "AU",
		"items": [
			{"item_type":"accommodation","description":"Deluxe room","quantity":"3","unit":"night","unit_price":"100"},
			{"item_type":"fee","description":"Transfer","quantity":"1","unit_price":"25.5"}
		]
	}`
	rec := ts.do(http.MethodPost, "/api/v1/documents", vendorcontext.RoleVendorStaff, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NotNil(t, ts.docs.created)
	assert.Equal(t, "quotation", ts.docs.created.Kind)
	assert.Equal(t, "Ayu", ts.docs.created.CustomerName)
	assert.True(t, ts.docs.created.IsForeigner)
	assert.Equal(t, "AU", ts.docs.created.GuestNationality)
	require.Len(t, ts.docs.created.Items, 2)
	assert.True(t, ts.docs.created.Items[1].UnitPrice.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, testVendorID, ts.docs.vendorID.String())
}

func TestCreateDocument_ItemValidation(t *testing.T) {
	ts := newTestServer(t)
	body := `{
		"kind": "invoice",
		"service_type": "tour",
		"customer_name": "Ayu",
		"items": [{"item_type":"accommodation","description":"Room","quantity":"0","unit":"night","unit_price":"100"}]
	}`
	rec := ts.do(http.MethodPost, "/api/v1/documents", vendorcontext.RoleVendorStaff, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "items[0].quantity", env.Errors[0].Field)
	assert.Equal(t, "gt", env.Errors[0].Code)
	assert.Nil(t, ts.docs.created)
}

func TestCreateDocument_WrappedDomainError(t *testing.T) {
	ts := newTestServer(t)
	ts.docs.err = fmt.Errorf("items[1]: %w", documentdomain.ErrInvalidTaxRateID)

	body := `{"kind":"invoice","service_type":"tour","customer_name":"Ayu","items":[]}`
	rec := ts.do(http.MethodPost, "/api/v1/documents", vendorcontext.RoleVendorStaff, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "invalid_tax_rate_id", env.Errors[0].Code)
	assert.Equal(t, "tax_rate_id", env.Errors[0].Field)
}

func TestFinalize_RequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	number := "INV-2025-0001"
	ts.docs.doc = &documentdomain.Document{ID: 7, Kind: documentdomain.KindInvoice, Status: documentdomain.StatusFinalized, DocumentNumber: &number}

	rec := ts.do(http.MethodPost, "/api/v1/documents/7/finalize", vendorcontext.RoleVendorStaff, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/documents/7/finalize", vendorcontext.RoleVendorAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), number)
}

func TestFinalize_NotDraftIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.docs.err = documentdomain.ErrDocumentNotDraft

	rec := ts.do(http.MethodPost, "/api/v1/documents/7/finalize", vendorcontext.RoleVendorAdmin, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "document_not_draft", decode(t, rec).ErrorMessage)
}

func TestGetDocument_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.docs.err = documentdomain.ErrNotFound

	rec := ts.do(http.MethodGet, "/api/v1/documents/99", vendorcontext.RoleVendorStaff, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocuments_Pagination(t *testing.T) {
	ts := newTestServer(t)
	ts.docs.list = documentdomain.ListResponse{
		Documents: []*documentdomain.Document{{ID: 1}, {ID: 2}},
		PageInfo:  pagination.BuildPageInfo(pagination.Pagination{Page: 2, PageSize: 2}, 5),
	}

	rec := ts.do(http.MethodGet, "/api/v1/documents?kind=invoice&page=2&page_size=2", vendorcontext.RoleVendorStaff, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(5), env.Pagination.Total)
	assert.True(t, env.Pagination.HasMore)
	assert.Equal(t, "invoice", ts.docs.listReq.Kind)
	assert.Equal(t, 2, ts.docs.listReq.Page)
}

func TestDownloadPDF(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/v1/documents/7/pdf", vendorcontext.RoleVendorStaff, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-INV-2025-0001.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestPreviewDocumentNumber(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/document-numbers/quotation/preview", vendorcontext.RoleVendorStaff, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "QUO-2025-0003")

	rec = ts.do(http.MethodGet, "/api/v1/document-numbers/receipt-x/preview", vendorcontext.RoleVendorStaff, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/health", "", "")

	rec := ts.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vendorbill_api_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestWriteRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratelimit.NewVendorLimiter(ratelimit.Params{
		Cfg:    config.Config{RateLimit: config.RateLimitConfig{Enabled: true, Rate: 0.01, Burst: 1}},
		Log:    zap.NewNop(),
		Client: client,
	})
	ts := newTestServerWithLimiter(t, limiter)

	body := `{"quantity":"1","unit_price":"100"}`
	rec := ts.do(http.MethodPost, "/api/v1/pricing/line-total", vendorcontext.RoleVendorStaff, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(http.MethodPost, "/api/v1/pricing/line-total", vendorcontext.RoleVendorStaff, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "too many requests", env.ErrorMessage)

	rec = ts.do(http.MethodGet, "/api/v1/document-numbers/quotation/preview", vendorcontext.RoleVendorStaff, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListAuditLogs(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/audit-logs?target_id=42&start_at=2025-05-01&end_at=2025-05-31", vendorcontext.RoleVendorStaff, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/audit-logs?target_id=42&start_at=2025-05-01&end_at=2025-05-31", vendorcontext.RoleVendorAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	var logs []auditdomain.AuditLog
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "document.finalized", logs[0].Action)

	assert.Equal(t, "42", ts.audit.listReq.TargetID)
	require.NotNil(t, ts.audit.listReq.EndAt)
	assert.Equal(t, 23, ts.audit.listReq.EndAt.Hour())

	rec = ts.do(http.MethodGet, "/api/v1/audit-logs?start_at=yesterday", vendorcontext.RoleVendorAdmin, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "start_at", env.Errors[0].Field)
}
