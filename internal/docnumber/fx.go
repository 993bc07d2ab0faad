package docnumber

import (
	"github.com/smallbiznis/vendorbill/internal/docnumber/repository"
	"github.com/smallbiznis/vendorbill/internal/docnumber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("docnumber.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
