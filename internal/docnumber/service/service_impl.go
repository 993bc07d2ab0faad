package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendorbill/internal/clock"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	"github.com/smallbiznis/vendorbill/internal/docnumber/format"
	obsmetrics "github.com/smallbiznis/vendorbill/internal/observability/metrics"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    docnumberdomain.Repository
	Docs    *config.DocumentsConfigHolder
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
	Prom    *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    docnumberdomain.Repository
	docs    *config.DocumentsConfigHolder
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	prom    *telemetry.Metrics
}

func NewService(p Params) docnumberdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("docnumber.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		docs:    p.Docs,
		clock:   p.Clock,
		metrics: p.Metrics,
		prom:    p.Prom,
	}
}

func (s *Service) Preview(ctx context.Context, kind docnumberdomain.Kind) (*docnumberdomain.Preview, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return nil, docnumberdomain.ErrInvalidVendor
	}
	kind, ok = docnumberdomain.ParseKind(string(kind))
	if !ok {
		return nil, docnumberdomain.ErrInvalidKind
	}

	cfg := s.docs.Get()
	preview := &docnumberdomain.Preview{
		Kind:       kind,
		Prefix:     cfg.PrefixFor(string(kind)),
		NextNumber: 1,
	}

	counter, err := s.repo.Find(ctx, vendorID, kind)
	if err != nil {
		return nil, err
	}
	if counter != nil {
		preview.Prefix = counter.Prefix
		preview.NextNumber = counter.NextNumber
	}

	number, err := format.FormatNumber(cfg.NumberTemplate, preview.Prefix, s.clock.Now(), preview.NextNumber)
	if err != nil {
		return nil, docnumberdomain.ErrInvalidTemplate
	}
	preview.Number = number
	return preview, nil
}

func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, kind docnumberdomain.Kind, issuedAt time.Time) (*docnumberdomain.Allocation, error) {
	if vendorID == 0 {
		return nil, docnumberdomain.ErrInvalidVendor
	}
	kind, ok := docnumberdomain.ParseKind(string(kind))
	if !ok {
		return nil, docnumberdomain.ErrInvalidKind
	}

	if tx != nil {
		return s.allocate(ctx, tx, vendorID, kind, issuedAt)
	}

	var allocation *docnumberdomain.Allocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		allocation, err = s.allocate(ctx, tx, vendorID, kind, issuedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return allocation, nil
}

func (s *Service) allocate(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, kind docnumberdomain.Kind, issuedAt time.Time) (*docnumberdomain.Allocation, error) {
	cfg := s.docs.Get()
	repo := s.repo.WithTx(tx)

	now := s.clock.Now()
	if err := repo.Ensure(ctx, &docnumberdomain.Counter{
		ID:         s.genID.Generate(),
		VendorID:   vendorID,
		Kind:       kind,
		Prefix:     cfg.PrefixFor(string(kind)),
		NextNumber: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}

	counter, err := repo.Increment(ctx, vendorID, kind, now)
	if err != nil {
		return nil, err
	}
	seq := counter.NextNumber - 1

	number, err := format.FormatNumber(cfg.NumberTemplate, counter.Prefix, issuedAt, seq)
	if err != nil {
		return nil, docnumberdomain.ErrInvalidTemplate
	}

	s.metrics.RecordNumberAllocated(ctx, string(kind))
	s.prom.ObserveNumberAllocated(string(kind))
	s.log.Info("document number allocated",
		zap.String("vendor_id", vendorID.String()),
		zap.String("kind", string(kind)),
		zap.String("number", number),
	)

	return &docnumberdomain.Allocation{
		Kind:     kind,
		Prefix:   counter.Prefix,
		Sequence: seq,
		Number:   number,
	}, nil
}
