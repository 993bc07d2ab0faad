package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendorbill/internal/clock"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	"github.com/smallbiznis/vendorbill/internal/docnumber/repository"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const counterSchema = `CREATE TABLE document_number_counters (
	id INTEGER PRIMARY KEY,
	vendor_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	prefix TEXT NOT NULL,
	next_number INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (vendor_id, kind)
)`

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(counterSchema).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
		Docs:  config.NewStaticDocumentsConfigHolder(config.DefaultDocumentsConfig()),
		Clock: clock.NewFakeClock(time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)),
	}).(*Service)
	return svc, db
}

var issuedAt = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

func TestAllocate_IsSequentialPerVendorAndKind(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, nil, 1, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)
	second, err := svc.Allocate(ctx, nil, 1, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)
	quote, err := svc.Allocate(ctx, nil, 1, docnumberdomain.KindQuotation, issuedAt)
	require.NoError(t, err)
	other, err := svc.Allocate(ctx, nil, 2, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)

	assert.Equal(t, "INV-2025-0001", first.Number)
	assert.Equal(t, "INV-2025-0002", second.Number)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "QUO-2025-0001", quote.Number)
	assert.Equal(t, "INV-2025-0001", other.Number)
}

func TestPreview_DoesNotConsume(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := vendorcontext.WithVendorID(context.Background(), snowflake.ID(1))

	preview, err := svc.Preview(ctx, docnumberdomain.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), preview.NextNumber)
	assert.Equal(t, "INV-2025-0001", preview.Number)

	again, err := svc.Preview(ctx, docnumberdomain.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, preview.Number, again.Number)

	_, err = svc.Allocate(ctx, nil, 1, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)

	after, err := svc.Preview(ctx, docnumberdomain.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.NextNumber)
	assert.Equal(t, "INV-2025-0002", after.Number)
}

func TestAllocate_RollbackReleasesNumber(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Allocate(ctx, tx, 1, docnumberdomain.KindReceipt, issuedAt)
		require.NoError(t, err)
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	got, err := svc.Allocate(ctx, nil, 1, docnumberdomain.KindReceipt, issuedAt)
	require.NoError(t, err)
	assert.Equal(t, "RCT-2025-0001", got.Number)
}

func TestAllocate_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const workers = 16
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allocation, err := svc.Allocate(ctx, nil, 9, docnumberdomain.KindInvoice, issuedAt)
			if assert.NoError(t, err) {
				numbers <- allocation.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for n := range numbers {
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
	assert.True(t, seen["INV-2025-0016"])
}

func TestAllocate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Allocate(context.Background(), nil, 0, docnumberdomain.KindInvoice, issuedAt)
	assert.ErrorIs(t, err, docnumberdomain.ErrInvalidVendor)

	_, err = svc.Allocate(context.Background(), nil, 1, "memo", issuedAt)
	assert.ErrorIs(t, err, docnumberdomain.ErrInvalidKind)

	_, err = svc.Preview(context.Background(), docnumberdomain.KindInvoice)
	assert.ErrorIs(t, err, docnumberdomain.ErrInvalidVendor)
}

func TestAllocate_UsesConfiguredTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	cfg := config.DefaultDocumentsConfig()
	cfg.NumberTemplate = "{PREFIX}/{YY}{MM}/{SEQ6}"
	cfg.Prefixes["invoice"] = "TAX"
	svc.docs = config.NewStaticDocumentsConfigHolder(cfg)

	got, err := svc.Allocate(context.Background(), nil, 3, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)
	assert.Equal(t, "TAX/2505/000001", got.Number)
}

func TestAllocate_StampsCounterWithServiceClock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	fake := svc.clock.(*clock.FakeClock)
	created := fake.Now()

	_, err := svc.Allocate(ctx, nil, 1, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)

	fake.Advance(3 * time.Hour)
	_, err = svc.Allocate(ctx, nil, 1, docnumberdomain.KindInvoice, issuedAt)
	require.NoError(t, err)

	counter, err := svc.repo.Find(ctx, 1, docnumberdomain.KindInvoice)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.True(t, counter.CreatedAt.Equal(created), "created_at %s", counter.CreatedAt)
	assert.True(t, counter.UpdatedAt.Equal(created.Add(3*time.Hour)), "updated_at %s", counter.UpdatedAt)
}
