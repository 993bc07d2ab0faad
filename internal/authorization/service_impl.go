package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/vendorbill/internal/config"
	obslogger "github.com/smallbiznis/vendorbill/internal/observability/logger"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTaxRate        = "tax_rate"
	ObjectTaxSetting     = "tax_setting"
	ObjectTaxExemption   = "tax_exemption"
	ObjectDocument       = "document"
	ObjectDocumentNumber = "document_number"
	ObjectAuditLog       = "audit_log"
)

const (
	ActionView     = "view"
	ActionManage   = "manage"
	ActionFinalize = "finalize"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies persisted through the gorm adapter and, when
// enabled, seeds the built-in role grants.
func NewEnforcer(db *gorm.DB, cfg config.Config) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if cfg.Bootstrap.SeedAuthPolicies {
		if err := seedPolicies(enforcer); err != nil {
			return nil, err
		}
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = vendorcontext.NormalizeRole(role)
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		obslogger.WithContext(ctx, s.log).Warn("authorization denied",
			zap.String("actor_role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}

	if action == ActionFinalize {
		obslogger.WithContext(ctx, s.log).Info("authorization granted",
			zap.String("actor_role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
	}
	return nil
}

func subject(role string) string {
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, policy := range defaultPolicies() {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	for _, grouping := range roleHierarchy() {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}

func defaultPolicies() [][]string {
	staff := subject(vendorcontext.RoleVendorStaff)
	admin := subject(vendorcontext.RoleVendorAdmin)
	platform := subject(vendorcontext.RolePlatformAdmin)

	return [][]string{
		// Staff prepare documents and read the catalog.
		{staff, ObjectTaxRate, ActionView},
		{staff, ObjectTaxSetting, ActionView},
		{staff, ObjectTaxExemption, ActionView},
		{staff, ObjectDocument, ActionView},
		{staff, ObjectDocument, ActionManage},
		{staff, ObjectDocumentNumber, ActionView},

		// Vendor admins own their tax configuration and issue documents.
		{admin, ObjectTaxSetting, ActionManage},
		{admin, ObjectTaxExemption, ActionManage},
		{admin, ObjectDocument, ActionFinalize},
		{admin, ObjectAuditLog, ActionView},

		{platform, ObjectTaxRate, ActionManage},
	}
}

// roleHierarchy makes each role inherit everything granted to the role below it.
func roleHierarchy() [][]string {
	return [][]string{
		{subject(vendorcontext.RoleVendorAdmin), subject(vendorcontext.RoleVendorStaff)},
		{subject(vendorcontext.RolePlatformAdmin), subject(vendorcontext.RoleVendorAdmin)},
	}
}
