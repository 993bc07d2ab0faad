package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	auditrepository "github.com/smallbiznis/vendorbill/internal/audit/repository"
	auditservice "github.com/smallbiznis/vendorbill/internal/audit/service"
	"github.com/smallbiznis/vendorbill/internal/clock"
	"github.com/smallbiznis/vendorbill/internal/config"
	docnumberrepository "github.com/smallbiznis/vendorbill/internal/docnumber/repository"
	docnumberservice "github.com/smallbiznis/vendorbill/internal/docnumber/service"
	"github.com/smallbiznis/vendorbill/internal/document/render"
	"github.com/smallbiznis/vendorbill/internal/document/repository"
	"github.com/smallbiznis/vendorbill/internal/seed"
	taxcache "github.com/smallbiznis/vendorbill/internal/tax/cache"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	taxrepository "github.com/smallbiznis/vendorbill/internal/tax/repository"
	taxservice "github.com/smallbiznis/vendorbill/internal/tax/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE documents (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		document_number TEXT,
		source_document_id INTEGER,
		converted_to_id INTEGER,
		service_type TEXT NOT NULL,
		currency TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL DEFAULT '',
		is_foreigner BOOLEAN NOT NULL DEFAULT 0,
		guest_nationality TEXT NOT NULL DEFAULT '',
		booking_type TEXT NOT NULL DEFAULT '',
		promo_code TEXT NOT NULL DEFAULT '',
		subtotal TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		inclusive_tax_amount TEXT NOT NULL,
		total TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		status_reason TEXT,
		issued_at DATETIME,
		valid_until DATETIME,
		accepted_at DATETIME,
		rejected_at DATETIME,
		voided_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (vendor_id, kind, document_number)
	)`,
	`CREATE TABLE document_items (
		id INTEGER PRIMARY KEY,
		document_id INTEGER NOT NULL,
		vendor_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		description TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		discount_percent TEXT,
		discount_amount TEXT,
		tax_rate_id INTEGER,
		line_subtotal TEXT NOT NULL,
		line_discount TEXT NOT NULL,
		line_total TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		inclusive_tax_amount TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE document_tax_lines (
		id INTEGER PRIMARY KEY,
		document_id INTEGER NOT NULL,
		vendor_id INTEGER NOT NULL,
		tax_rate_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		tax_name TEXT NOT NULL,
		rate_type TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		is_inclusive BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE document_number_counters (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		prefix TEXT NOT NULL,
		next_number INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (vendor_id, kind)
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		actor_role TEXT NOT NULL,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		request_id TEXT,
		metadata TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE tax_rates (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		description TEXT,
		rate TEXT NOT NULL,
		rate_type TEXT NOT NULL,
		applies_to TEXT NOT NULL DEFAULT '{}',
		applies_to_foreigners_only BOOLEAN NOT NULL DEFAULT 0,
		is_inclusive BOOLEAN NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE vendor_tax_settings (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		tax_rate_id INTEGER NOT NULL,
		is_enabled BOOLEAN NOT NULL,
		override_rate TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (vendor_id, tax_rate_id)
	)`,
	`CREATE TABLE tax_exemptions (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		tax_rate_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		exemption_type TEXT NOT NULL,
		conditions JSON NOT NULL,
		valid_from DATETIME,
		valid_to DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
}

var (
	startOfTest = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	tgstID = snowflake.ID(101)
	sdfID  = snowflake.ID(102)
	svcID  = snowflake.ID(103)
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// testCatalog mirrors the default platform catalog.
func testCatalog() *taxdomain.Catalog {
	return &taxdomain.Catalog{
		Rates: []taxdomain.TaxRate{
			{
				ID: tgstID, Name: "Tourism GST", Code: "TGST", Rate: dec("12"),
				RateType: taxdomain.RateTypePercentage, AppliesTo: pq.StringArray{"accommodation"}, IsActive: true,
			},
			{
				ID: sdfID, Name: "Sustainable Development Fee", Code: "SDF", Rate: dec("1200"),
				RateType: taxdomain.RateTypeFixed, AppliesTo: pq.StringArray{"accommodation"},
				AppliesToForeignersOnly: true, IsActive: true,
			},
			{
				ID: svcID, Name: "Service Charge", Code: "SERVICE_CHARGE", Rate: dec("10"),
				RateType: taxdomain.RateTypePercentage, AppliesTo: pq.StringArray{"activity", "tour"},
				IsInclusive: true, IsActive: true,
			},
		},
	}
}

type staticResolver struct {
	catalog *taxdomain.Catalog
}

func (r *staticResolver) LoadCatalog(context.Context, snowflake.ID) (*taxdomain.Catalog, error) {
	return r.catalog, nil
}

type testEnv struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return buildTestEnv(t, func(*gorm.DB, *snowflake.Node, clock.Clock) taxdomain.Resolver {
		return &staticResolver{catalog: testCatalog()}
	})
}

// newCatalogTestEnv prices against the default catalog stored in the
// database, read through the tax service and repository.
func newCatalogTestEnv(t *testing.T) (*testEnv, *taxservice.Service) {
	t.Helper()
	var taxes *taxservice.Service
	env := buildTestEnv(t, func(db *gorm.DB, node *snowflake.Node, clk clock.Clock) taxdomain.Resolver {
		taxes = taxservice.NewService(taxservice.Params{
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  taxrepository.NewRepository(db),
			Cache: taxcache.NewMemoryCatalogCache(time.Minute),
			Clock: clk,
		})
		return taxes
	})
	_, err := seed.EnsureDefaultCatalog(context.Background(), env.db, env.node)
	require.NoError(t, err)
	return env, taxes
}

func buildTestEnv(t *testing.T, resolver func(*gorm.DB, *snowflake.Node, clock.Clock) taxdomain.Resolver) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(startOfTest)
	docs := config.NewStaticDocumentsConfigHolder(config.DefaultDocumentsConfig())

	numbers := docnumberservice.NewService(docnumberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  docnumberrepository.NewRepository(db),
		Docs:  docs,
		Clock: fake,
	})

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.NewRepository(db),
		Resolver: resolver(db, node, fake),
		Numbers:  numbers,
		Docs:     docs,
		Clock:    fake,
		Renderer: render.New(),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  auditrepository.Provide(),
			Clock: fake,
		}),
	}).(*Service)

	return &testEnv{svc: svc, db: db, clock: fake, node: node}
}
