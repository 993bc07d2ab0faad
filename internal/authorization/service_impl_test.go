package authorization

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendorbill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, seed bool) (Service, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := config.Config{Bootstrap: config.BootstrapConfig{SeedAuthPolicies: seed}}
	enforcer, err := NewEnforcer(db, cfg)
	require.NoError(t, err)

	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer}), db
}

func TestAuthorize_RoleHierarchy(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	cases := []struct {
		role   string
		object string
		action string
		want   error
	}{
		{"vendor_staff", ObjectDocument, ActionManage, nil},
		{"vendor_staff", ObjectTaxRate, ActionView, nil},
		{"vendor_staff", ObjectDocument, ActionFinalize, ErrForbidden},
		{"vendor_staff", ObjectTaxSetting, ActionManage, ErrForbidden},
		{"vendor_admin", ObjectDocument, ActionFinalize, nil},
		{"vendor_admin", ObjectDocument, ActionView, nil},
		{"vendor_admin", ObjectAuditLog, ActionView, nil},
		{"vendor_staff", ObjectAuditLog, ActionView, ErrForbidden},
		{"Vendor_Admin ", ObjectTaxExemption, ActionManage, nil},
		{"vendor_admin", ObjectTaxRate, ActionManage, ErrForbidden},
		{"platform_admin", ObjectTaxRate, ActionManage, nil},
		{"platform_admin", ObjectDocument, ActionFinalize, nil},
		{"guest", ObjectDocument, ActionView, ErrForbidden},
		{"", ObjectDocument, ActionView, ErrInvalidActor},
		{"vendor_staff", "", ActionView, ErrInvalidObject},
		{"vendor_staff", ObjectDocument, " ", ErrInvalidAction},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.role, tc.object, tc.action)
		if tc.want == nil {
			assert.NoError(t, err, "%s %s %s", tc.role, tc.object, tc.action)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "%s %s %s", tc.role, tc.object, tc.action)
	}
}

func TestNewEnforcer_PersistsPolicies(t *testing.T) {
	_, db := newTestService(t, true)
	want := int64(len(defaultPolicies()) + len(roleHierarchy()))

	var count int64
	require.NoError(t, db.Table("casbin_rule").Count(&count).Error)
	assert.Equal(t, want, count)

	// Seeding again is a no-op.
	_, err := NewEnforcer(db, config.Config{Bootstrap: config.BootstrapConfig{SeedAuthPolicies: true}})
	require.NoError(t, err)
	require.NoError(t, db.Table("casbin_rule").Count(&count).Error)
	assert.Equal(t, want, count)
}

func TestAuthorize_WithoutSeedDeniesEverything(t *testing.T) {
	svc, _ := newTestService(t, false)
	err := svc.Authorize(context.Background(), "platform_admin", ObjectTaxRate, ActionManage)
	assert.ErrorIs(t, err, ErrForbidden)
}
