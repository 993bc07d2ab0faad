package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendorbill/internal/audit"
	"github.com/smallbiznis/vendorbill/internal/authorization"
	"github.com/smallbiznis/vendorbill/internal/cache"
	"github.com/smallbiznis/vendorbill/internal/clock"
	"github.com/smallbiznis/vendorbill/internal/config"
	"github.com/smallbiznis/vendorbill/internal/docnumber"
	"github.com/smallbiznis/vendorbill/internal/document"
	"github.com/smallbiznis/vendorbill/internal/migration"
	"github.com/smallbiznis/vendorbill/internal/observability"
	"github.com/smallbiznis/vendorbill/internal/ratelimit"
	"github.com/smallbiznis/vendorbill/internal/server"
	"github.com/smallbiznis/vendorbill/internal/tax"
	"github.com/smallbiznis/vendorbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		audit.Module,
		tax.Module,
		docnumber.Module,
		document.Module,
		authorization.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
