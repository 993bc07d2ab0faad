package document

import (
	"github.com/smallbiznis/vendorbill/internal/document/render"
	"github.com/smallbiznis/vendorbill/internal/document/repository"
	"github.com/smallbiznis/vendorbill/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(render.New),
	fx.Provide(service.NewService),
)
