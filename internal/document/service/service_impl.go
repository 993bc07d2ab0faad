package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/clock"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/internal/document/render"
	obslogger "github.com/smallbiznis/vendorbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vendorbill/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	actionCreated   = "document.created"
	actionUpdated   = "document.updated"
	actionFinalized = "document.finalized"
	actionVoided    = "document.voided"
	actionAccepted  = "document.accepted"
	actionRejected  = "document.rejected"
	actionConverted = "document.converted"
)

var (
	tracer       = otel.Tracer("vendorbill/document")
	currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     documentdomain.Repository
	Resolver taxdomain.Resolver
	Numbers  docnumberdomain.Service
	Docs     *config.DocumentsConfigHolder
	Clock    clock.Clock
	Renderer render.Renderer
	Audit    auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Prom     *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     documentdomain.Repository
	resolver taxdomain.Resolver
	numbers  docnumberdomain.Service
	docs     *config.DocumentsConfigHolder
	clock    clock.Clock
	renderer render.Renderer
	auditor  auditdomain.Service
	metrics  *obsmetrics.Metrics
	prom     *telemetry.Metrics
}

func NewService(p Params) documentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("document.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		resolver: p.Resolver,
		numbers:  p.Numbers,
		docs:     p.Docs,
		clock:    p.Clock,
		renderer: p.Renderer,
		auditor:  p.Audit,
		metrics:  p.Metrics,
		prom:     p.Prom,
	}
}

func (s *Service) Create(ctx context.Context, req documentdomain.CreateRequest) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	kind, ok := documentdomain.ParseKind(req.Kind)
	if !ok {
		return nil, documentdomain.ErrInvalidKind
	}
	serviceType, ok := taxdomain.ParseServiceType(req.ServiceType)
	if !ok {
		return nil, documentdomain.ErrInvalidServiceType
	}
	currency, err := s.normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return nil, documentdomain.ErrInvalidCustomer
	}
	items, err := parseItems(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	doc := &documentdomain.Document{
		ID:            s.genID.Generate(),
		VendorID:      vendorID,
		Kind:          kind,
		Status:        documentdomain.StatusDraft,
		ServiceType:   string(serviceType),
		Currency:      currency,
		CustomerName:  customerName,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Notes:         strings.TrimSpace(req.Notes),
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	applyGuest(doc, req.GuestContext)

	catalog, err := s.resolver.LoadCatalog(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	s.price(ctx, doc, items, catalog, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, doc); err != nil {
			return err
		}
		if err := s.writeLines(ctx, repo, doc); err != nil {
			return err
		}
		return s.audit(ctx, tx, actionCreated, doc, map[string]any{
			"kind":  string(doc.Kind),
			"total": doc.Total.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, doc)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	doc, err := s.repo.FindByID(ctx, vendorID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}
	if err := s.loadLines(ctx, s.repo, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, req documentdomain.ListRequest) (documentdomain.ListResponse, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return documentdomain.ListResponse{}, err
	}

	filter := documentdomain.ListFilter{
		SortBy:     req.SortBy,
		OrderBy:    req.OrderBy,
		Pagination: req.Pagination.Normalize(),
	}
	if strings.TrimSpace(req.Kind) != "" {
		kind, ok := documentdomain.ParseKind(req.Kind)
		if !ok {
			return documentdomain.ListResponse{}, documentdomain.ErrInvalidKind
		}
		filter.Kind = kind
	}
	if strings.TrimSpace(req.Status) != "" {
		status, ok := documentdomain.ParseStatus(req.Status)
		if !ok {
			return documentdomain.ListResponse{}, documentdomain.ErrInvalidStatus
		}
		filter.Status = status
	}

	docs, total, err := s.repo.List(ctx, vendorID, filter)
	if err != nil {
		return documentdomain.ListResponse{}, err
	}
	return documentdomain.ListResponse{
		Documents: docs,
		PageInfo:  pagination.BuildPageInfo(filter.Pagination, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, req documentdomain.UpdateRequest) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	var replacement []documentdomain.LineItem
	if req.Items != nil {
		if replacement, err = parseItems(req.Items); err != nil {
			return nil, err
		}
	}
	catalog, err := s.resolver.LoadCatalog(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	var updated *documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		doc, err := s.lockDraft(ctx, repo, vendorID, docID)
		if err != nil {
			return err
		}
		if err := s.patch(doc, req); err != nil {
			return err
		}

		items := replacement
		if items == nil {
			if items, err = repo.ListItems(ctx, doc.ID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		doc.UpdatedAt = now
		s.price(ctx, doc, items, catalog, now)
		if err := repo.Save(ctx, doc); err != nil {
			return err
		}
		if err := s.writeLines(ctx, repo, doc); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actionUpdated, doc, map[string]any{
			"items_replaced": req.Items != nil,
			"total":          doc.Total.StringFixed(2),
		}); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Finalize reprices the draft as of now, allocates its number and issues
// it. A failure anywhere rolls the number back with the rest.
func (s *Service) Finalize(ctx context.Context, id string) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.finalize")
	defer span.End()

	catalog, err := s.resolver.LoadCatalog(ctx, vendorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var finalized *documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		doc, err := s.lockDraft(ctx, repo, vendorID, docID)
		if err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, doc.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return documentdomain.ErrDocumentEmpty
		}

		now := s.clock.Now()
		s.price(ctx, doc, items, catalog, now)

		allocation, err := s.numbers.Allocate(ctx, tx, vendorID, doc.Kind.NumberKind(), now)
		if err != nil {
			return err
		}
		doc.DocumentNumber = &allocation.Number
		doc.Status = documentdomain.StatusFinalized
		doc.IssuedAt = &now
		if doc.Kind == documentdomain.KindQuotation {
			validUntil := now.AddDate(0, 0, s.docs.Get().QuotationValidityDays)
			doc.ValidUntil = &validUntil
		}
		doc.UpdatedAt = now

		if err := repo.Save(ctx, doc); err != nil {
			return err
		}
		if err := s.writeLines(ctx, repo, doc); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actionFinalized, doc, map[string]any{
			"document_number": allocation.Number,
			"total":           doc.Total.StringFixed(2),
		}); err != nil {
			return err
		}
		finalized = doc
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("document.kind", string(finalized.Kind)),
		attribute.String("document.number", *finalized.DocumentNumber),
	)
	s.recordTransition(ctx, finalized)
	s.prom.ObserveDocumentTotal(string(finalized.Kind), finalized.Currency, finalized.Total.InexactFloat64())
	obslogger.WithContext(ctx, s.log).Info("document finalized",
		zap.String("document_id", finalized.ID.String()),
		zap.String("document_kind", string(finalized.Kind)),
		zap.String("document_number", *finalized.DocumentNumber),
		zap.String("total", finalized.Total.StringFixed(2)),
	)
	return finalized, nil
}

// Void retires a document. Its number, if any, stays consumed.
func (s *Service) Void(ctx context.Context, id string, reason string) (*documentdomain.Document, error) {
	return s.transition(ctx, id, actionVoided, func(doc *documentdomain.Document, now time.Time) error {
		if doc.Status == documentdomain.StatusVoid {
			return documentdomain.ErrDocumentVoid
		}
		doc.Status = documentdomain.StatusVoid
		doc.VoidedAt = &now
		doc.StatusReason = reasonOrNil(reason)
		return nil
	})
}

func (s *Service) Accept(ctx context.Context, id string) (*documentdomain.Document, error) {
	return s.transition(ctx, id, actionAccepted, func(doc *documentdomain.Document, now time.Time) error {
		if doc.Kind != documentdomain.KindQuotation {
			return documentdomain.ErrNotQuotation
		}
		if doc.Status != documentdomain.StatusFinalized {
			return documentdomain.ErrDocumentNotIssued
		}
		if doc.Expired(now) {
			return documentdomain.ErrQuotationExpired
		}
		doc.Status = documentdomain.StatusAccepted
		doc.AcceptedAt = &now
		return nil
	})
}

func (s *Service) Reject(ctx context.Context, id string, reason string) (*documentdomain.Document, error) {
	return s.transition(ctx, id, actionRejected, func(doc *documentdomain.Document, now time.Time) error {
		if doc.Kind != documentdomain.KindQuotation {
			return documentdomain.ErrNotQuotation
		}
		if doc.Status != documentdomain.StatusFinalized {
			return documentdomain.ErrDocumentNotIssued
		}
		doc.Status = documentdomain.StatusRejected
		doc.RejectedAt = &now
		doc.StatusReason = reasonOrNil(reason)
		return nil
	})
}

func (s *Service) Convert(ctx context.Context, id string) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.convert")
	defer span.End()

	catalog, err := s.resolver.LoadCatalog(ctx, vendorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var invoice *documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quote, err := repo.FindForUpdate(ctx, vendorID, docID)
		if err != nil {
			return err
		}
		if quote == nil {
			return documentdomain.ErrNotFound
		}
		if quote.Kind != documentdomain.KindQuotation {
			return documentdomain.ErrNotQuotation
		}
		if quote.Status != documentdomain.StatusAccepted {
			return documentdomain.ErrNotAccepted
		}
		if quote.ConvertedToID != nil {
			return documentdomain.ErrAlreadyConverted
		}
		items, err := repo.ListItems(ctx, quote.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		sourceID := quote.ID
		invoice = &documentdomain.Document{
			ID:               s.genID.Generate(),
			VendorID:         vendorID,
			Kind:             documentdomain.KindInvoice,
			Status:           documentdomain.StatusDraft,
			SourceDocumentID: &sourceID,
			ServiceType:      quote.ServiceType,
			Currency:         quote.Currency,
			CustomerName:     quote.CustomerName,
			CustomerEmail:    quote.CustomerEmail,
			IsForeigner:      quote.IsForeigner,
			GuestNationality: quote.GuestNationality,
			BookingType:      quote.BookingType,
			PromoCode:        quote.PromoCode,
			Notes:            quote.Notes,
			Metadata:         quote.Metadata,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		s.price(ctx, invoice, items, catalog, now)
		if err := repo.Create(ctx, invoice); err != nil {
			return err
		}
		if err := s.writeLines(ctx, repo, invoice); err != nil {
			return err
		}

		if err := s.audit(ctx, tx, actionCreated, invoice, map[string]any{
			"kind":               string(invoice.Kind),
			"source_document_id": quote.ID.String(),
		}); err != nil {
			return err
		}

		quote.ConvertedToID = &invoice.ID
		quote.UpdatedAt = now
		if err := repo.Save(ctx, quote); err != nil {
			return err
		}
		return s.audit(ctx, tx, actionConverted, quote, map[string]any{
			"invoice_id": invoice.ID.String(),
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recordTransition(ctx, invoice)
	obslogger.WithContext(ctx, s.log).Info("quotation converted",
		zap.String("quotation_id", docID.String()),
		zap.String("invoice_id", invoice.ID.String()),
	)
	return invoice, nil
}

func (s *Service) Price(ctx context.Context, req documentdomain.PriceRequest) (*documentdomain.PriceResponse, error) {
	serviceType, ok := taxdomain.ParseServiceType(req.ServiceType)
	if !ok {
		return nil, documentdomain.ErrInvalidServiceType
	}
	items, err := parseItems(req.Items)
	if err != nil {
		return nil, err
	}

	at := s.clock.Now()
	if req.Date != nil && !req.Date.IsZero() {
		at = req.Date.UTC()
	}

	// Without a vendor only platform defaults apply.
	vendorID, _ := vendorcontext.VendorIDFromContext(ctx)
	catalog, err := s.resolver.LoadCatalog(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	doc := &documentdomain.Document{ServiceType: string(serviceType)}
	applyGuest(doc, req.GuestContext)
	result := priceItems(guestOf(doc), items, catalog, at)
	s.recordEvaluations(ctx, result)

	return &documentdomain.PriceResponse{
		Items:              result.items,
		Totals:             result.totals,
		InclusiveTaxAmount: result.tax.InclusiveAmount,
		TaxLines:           result.tax.Lines,
		Exempted:           result.tax.Exempted,
	}, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (*documentdomain.RenderedDocument, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.render_pdf")
	defer span.End()

	content, err := s.renderer.Render(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &documentdomain.RenderedDocument{
		Filename: render.Filename(doc),
		Content:  content,
	}, nil
}

// transition runs a status change on a locked document and saves it.
func (s *Service) transition(ctx context.Context, id string, action string, change func(doc *documentdomain.Document, now time.Time) error) (*documentdomain.Document, error) {
	vendorID, err := s.vendorID(ctx)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var changed *documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		doc, err := repo.FindForUpdate(ctx, vendorID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}

		now := s.clock.Now()
		if err := change(doc, now); err != nil {
			return err
		}
		doc.UpdatedAt = now
		if err := repo.Save(ctx, doc); err != nil {
			return err
		}
		metadata := map[string]any{"status": string(doc.Status)}
		if doc.StatusReason != nil {
			metadata["reason"] = *doc.StatusReason
		}
		if err := s.audit(ctx, tx, action, doc, metadata); err != nil {
			return err
		}
		if err := s.loadLines(ctx, repo, doc); err != nil {
			return err
		}
		changed = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, changed)
	return changed, nil
}

func (s *Service) lockDraft(ctx context.Context, repo documentdomain.Repository, vendorID, id snowflake.ID) (*documentdomain.Document, error) {
	doc, err := repo.FindForUpdate(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}
	if doc.Status != documentdomain.StatusDraft {
		return nil, documentdomain.ErrDocumentNotDraft
	}
	return doc, nil
}

func (s *Service) patch(doc *documentdomain.Document, req documentdomain.UpdateRequest) error {
	if req.ServiceType != nil {
		serviceType, ok := taxdomain.ParseServiceType(*req.ServiceType)
		if !ok {
			return documentdomain.ErrInvalidServiceType
		}
		doc.ServiceType = string(serviceType)
	}
	if req.Currency != nil {
		currency, err := s.normalizeCurrency(*req.Currency)
		if err != nil {
			return err
		}
		doc.Currency = currency
	}
	if req.CustomerName != nil {
		name := strings.TrimSpace(*req.CustomerName)
		if name == "" {
			return documentdomain.ErrInvalidCustomer
		}
		doc.CustomerName = name
	}
	if req.CustomerEmail != nil {
		doc.CustomerEmail = strings.TrimSpace(*req.CustomerEmail)
	}
	if req.Notes != nil {
		doc.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Metadata != nil {
		doc.Metadata = datatypes.JSONMap(req.Metadata)
	}

	g := documentdomain.GuestContext{
		IsForeigner:      doc.IsForeigner,
		GuestNationality: doc.GuestNationality,
		BookingType:      doc.BookingType,
		PromoCode:        doc.PromoCode,
	}
	if req.IsForeigner != nil {
		g.IsForeigner = *req.IsForeigner
	}
	if req.GuestNationality != nil {
		g.GuestNationality = *req.GuestNationality
	}
	if req.BookingType != nil {
		g.BookingType = *req.BookingType
	}
	if req.PromoCode != nil {
		g.PromoCode = *req.PromoCode
	}
	applyGuest(doc, g)
	return nil
}

// price reprices items for doc and records the engine runs.
func (s *Service) price(ctx context.Context, doc *documentdomain.Document, items []documentdomain.LineItem, catalog *taxdomain.Catalog, at time.Time) {
	result := priceItems(guestOf(doc), items, catalog, at)
	result.apply(doc, s.genID, at)
	s.recordEvaluations(ctx, result)
}

func (s *Service) writeLines(ctx context.Context, repo documentdomain.Repository, doc *documentdomain.Document) error {
	if err := repo.ReplaceItems(ctx, doc.ID, doc.Items); err != nil {
		return err
	}
	return repo.ReplaceTaxLines(ctx, doc.ID, doc.TaxLines)
}

func (s *Service) loadLines(ctx context.Context, repo documentdomain.Repository, doc *documentdomain.Document) error {
	items, err := repo.ListItems(ctx, doc.ID)
	if err != nil {
		return err
	}
	taxLines, err := repo.ListTaxLines(ctx, doc.ID)
	if err != nil {
		return err
	}
	doc.Items = items
	doc.TaxLines = taxLines
	return nil
}

func (s *Service) recordEvaluations(ctx context.Context, result priced) {
	for _, e := range result.evaluations {
		outcome := e.result.Outcome()
		s.metrics.RecordTaxEvaluation(ctx, string(e.serviceType), outcome)
		s.prom.ObserveTaxEvaluation(outcome)
	}
}

// audit records action on doc through tx, so a failed write rolls the
// change back with it.
func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, doc *documentdomain.Document, metadata map[string]any) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, tx, auditdomain.Entry{
		VendorID:   doc.VendorID,
		Action:     action,
		TargetType: auditdomain.TargetDocument,
		TargetID:   doc.ID.String(),
		Metadata:   metadata,
	})
}

func (s *Service) recordTransition(ctx context.Context, doc *documentdomain.Document) {
	s.metrics.RecordDocumentTransition(ctx, string(doc.Kind), string(doc.Status))
	s.prom.ObserveDocument(string(doc.Kind), string(doc.Status))
}

func (s *Service) vendorID(ctx context.Context) (snowflake.ID, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return 0, documentdomain.ErrInvalidVendor
	}
	return vendorID, nil
}

func (s *Service) normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		currency = strings.ToUpper(s.docs.Get().DefaultCurrency)
	}
	if !currencyCode.MatchString(currency) {
		return "", documentdomain.ErrInvalidCurrency
	}
	return currency, nil
}

func applyGuest(doc *documentdomain.Document, g documentdomain.GuestContext) {
	doc.IsForeigner = g.IsForeigner
	doc.GuestNationality = strings.ToUpper(strings.TrimSpace(g.GuestNationality))
	doc.BookingType = strings.ToLower(strings.TrimSpace(g.BookingType))
	doc.PromoCode = strings.ToUpper(strings.TrimSpace(g.PromoCode))
}

func reasonOrNil(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	return &reason
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, documentdomain.ErrInvalidID
	}
	return id, nil
}
