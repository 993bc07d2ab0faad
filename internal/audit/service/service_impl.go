package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/clock"
	obscontext "github.com/smallbiznis/vendorbill/internal/observability/context"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	targetID := strings.TrimSpace(entry.TargetID)
	if targetType == "" || targetID == "" {
		return auditdomain.ErrInvalidTarget
	}

	vendorID := entry.VendorID
	if vendorID == 0 {
		resolved, ok := vendorcontext.VendorIDFromContext(ctx)
		if !ok {
			return auditdomain.ErrInvalidVendor
		}
		vendorID = resolved
	}

	actor := vendorcontext.RoleFromContext(ctx)
	if actor == "" {
		actor = auditdomain.ActorTypeSystem
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		VendorID:   vendorID,
		ActorRole:  actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedAt:  s.clock.Now(),
	}
	if len(payload) > 0 {
		record.Metadata = datatypes.JSONMap(payload)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		record.RequestID = &requestID
	}

	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, &record); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	vendorID, ok := vendorcontext.VendorIDFromContext(ctx)
	if !ok {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidVendor
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		VendorID:   vendorID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Offset:     page.Offset(),
		Limit:      page.PageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	if items == nil {
		items = []auditdomain.AuditLog{}
	}

	return auditdomain.ListResponse{
		PageInfo:  pagination.BuildPageInfo(page, total),
		AuditLogs: items,
	}, nil
}
