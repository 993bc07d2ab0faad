package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/audit/repository"
	"github.com/smallbiznis/vendorbill/internal/clock"
	obscontext "github.com/smallbiznis/vendorbill/internal/observability/context"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const auditSchema = `CREATE TABLE audit_logs (
	id INTEGER PRIMARY KEY,
	vendor_id INTEGER NOT NULL,
	actor_role TEXT NOT NULL,
	action TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	request_id TEXT,
	metadata TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

func newTestService(t *testing.T) *Service {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(auditSchema).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)),
	}).(*Service)
}

func TestRecord_ResolvesContext(t *testing.T) {
	svc := newTestService(t)
	ctx := vendorcontext.WithVendorID(context.Background(), snowflake.ID(7))
	ctx = obscontext.WithRequestID(ctx, "req-1")

	err := svc.Record(ctx, nil, auditdomain.Entry{
		Action:     "document.created",
		TargetType: auditdomain.TargetDocument,
		TargetID:   "42",
		Metadata:   map[string]any{"total": "10.00", "": "dropped"},
	})
	require.NoError(t, err)

	res, err := svc.List(ctx, auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)

	entry := res.AuditLogs[0]
	assert.Equal(t, snowflake.ID(7), entry.VendorID)
	assert.Equal(t, auditdomain.ActorTypeSystem, entry.ActorRole)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-1", *entry.RequestID)
	assert.Equal(t, "10.00", entry.Metadata["total"])
	assert.NotContains(t, entry.Metadata, "")
}

func TestRecord_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, nil, auditdomain.Entry{TargetType: "document", TargetID: "1", VendorID: 7})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(ctx, nil, auditdomain.Entry{Action: "document.created", VendorID: 7})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTarget)

	err = svc.Record(ctx, nil, auditdomain.Entry{Action: "document.created", TargetType: "document", TargetID: "1"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidVendor)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := vendorcontext.WithVendorID(context.Background(), snowflake.ID(7))

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{
			Action:     "document.updated",
			TargetType: auditdomain.TargetDocument,
			TargetID:   "1",
		}))
	}
	require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{
		Action:     "document.finalized",
		TargetType: auditdomain.TargetDocument,
		TargetID:   "2",
	}))

	res, err := svc.List(ctx, auditdomain.ListRequest{
		Pagination: pagination.Pagination{Page: 1, PageSize: 2},
		Action:     "document.updated",
	})
	require.NoError(t, err)
	assert.Len(t, res.AuditLogs, 2)
	assert.Equal(t, int64(3), res.Total)
	assert.True(t, res.HasMore)

	res, err = svc.List(ctx, auditdomain.ListRequest{TargetID: "2"})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)
	assert.Equal(t, "document.finalized", res.AuditLogs[0].Action)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.List(ctx, auditdomain.ListRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	_, err = svc.List(context.Background(), auditdomain.ListRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidVendor)
}
