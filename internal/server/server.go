package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/authorization"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/internal/observability"
	obsmiddleware "github.com/smallbiznis/vendorbill/internal/observability/logger"
	obstracing "github.com/smallbiznis/vendorbill/internal/observability/tracing"
	"github.com/smallbiznis/vendorbill/internal/ratelimit"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, apiMetrics *telemetry.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(APIMetrics(apiMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, apiMetrics *telemetry.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	return NewEngine(obsCfg, apiMetrics, gatherer)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	authzSvc    authorization.Service
	taxSvc      taxdomain.Service
	documentSvc documentdomain.Service
	numberSvc   docnumberdomain.Service
	auditSvc    auditdomain.Service
	limiter     *ratelimit.VendorLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuthzSvc    authorization.Service
	TaxSvc      taxdomain.Service
	DocumentSvc documentdomain.Service
	NumberSvc   docnumberdomain.Service
	AuditSvc    auditdomain.Service      `optional:"true"`
	Limiter     *ratelimit.VendorLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		authzSvc:    p.AuthzSvc,
		taxSvc:      p.TaxSvc,
		documentSvc: p.DocumentSvc,
		numberSvc:   p.NumberSvc,
		auditSvc:    p.AuditSvc,
		limiter:     p.Limiter,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(VendorContext())
	api.Use(WriteRateLimit(s.limiter, s.log))

	pricing := api.Group("/pricing")
	{
		pricing.POST("/line-total", s.authorize(authorization.ObjectDocument, authorization.ActionView), s.LineTotal)
		pricing.POST("/totals", s.authorize(authorization.ObjectDocument, authorization.ActionView), s.DocumentTotals)
	}

	api.POST("/taxes/calculate", s.authorize(authorization.ObjectTaxRate, authorization.ActionView), s.CalculateTax)

	rates := api.Group("/tax-rates")
	{
		rates.GET("", s.authorize(authorization.ObjectTaxRate, authorization.ActionView), s.ListTaxRates)
		rates.POST("", s.authorize(authorization.ObjectTaxRate, authorization.ActionManage), s.CreateTaxRate)
		rates.PATCH("/:id", s.authorize(authorization.ObjectTaxRate, authorization.ActionManage), s.UpdateTaxRate)
		rates.POST("/:id/deactivate", s.authorize(authorization.ObjectTaxRate, authorization.ActionManage), s.DeactivateTaxRate)
	}

	settings := api.Group("/vendor/tax-settings", RequireVendor())
	{
		settings.GET("", s.authorize(authorization.ObjectTaxSetting, authorization.ActionView), s.ListVendorTaxSettings)
		settings.PUT("/:tax_rate_id", s.authorize(authorization.ObjectTaxSetting, authorization.ActionManage), s.UpsertVendorTaxSetting)
		settings.DELETE("/:tax_rate_id", s.authorize(authorization.ObjectTaxSetting, authorization.ActionManage), s.DeleteVendorTaxSetting)
	}

	exemptions := api.Group("/tax-exemptions", RequireVendor())
	{
		exemptions.GET("", s.authorize(authorization.ObjectTaxExemption, authorization.ActionView), s.ListTaxExemptions)
		exemptions.POST("", s.authorize(authorization.ObjectTaxExemption, authorization.ActionManage), s.CreateTaxExemption)
		exemptions.PATCH("/:id", s.authorize(authorization.ObjectTaxExemption, authorization.ActionManage), s.UpdateTaxExemption)
		exemptions.POST("/:id/deactivate", s.authorize(authorization.ObjectTaxExemption, authorization.ActionManage), s.DeactivateTaxExemption)
	}

	documents := api.Group("/documents", RequireVendor())
	{
		documents.GET("", s.authorize(authorization.ObjectDocument, authorization.ActionView), s.ListDocuments)
		documents.POST("", s.authorize(authorization.ObjectDocument, authorization.ActionManage), s.CreateDocument)
		documents.GET("/:id", s.authorize(authorization.ObjectDocument, authorization.ActionView), s.GetDocument)
		documents.PATCH("/:id", s.authorize(authorization.ObjectDocument, authorization.ActionManage), s.UpdateDocument)
		documents.POST("/:id/finalize", s.authorize(authorization.ObjectDocument, authorization.ActionFinalize), s.FinalizeDocument)
		documents.POST("/:id/void", s.authorize(authorization.ObjectDocument, authorization.ActionFinalize), s.VoidDocument)
		documents.POST("/:id/accept", s.authorize(authorization.ObjectDocument, authorization.ActionManage), s.AcceptDocument)
		documents.POST("/:id/reject", s.authorize(authorization.ObjectDocument, authorization.ActionManage), s.RejectDocument)
		documents.POST("/:id/convert", s.authorize(authorization.ObjectDocument, authorization.ActionManage), s.ConvertDocument)
		documents.GET("/:id/pdf", s.authorize(authorization.ObjectDocument, authorization.ActionView), s.DownloadDocumentPDF)
	}

	api.GET("/document-numbers/:kind/preview", RequireVendor(), s.authorize(authorization.ObjectDocumentNumber, authorization.ActionView), s.PreviewDocumentNumber)
	api.GET("/audit-logs", RequireVendor(), s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
