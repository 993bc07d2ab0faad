package tax

import (
	taxcache "github.com/smallbiznis/vendorbill/internal/tax/cache"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/tax/repository"
	"github.com/smallbiznis/vendorbill/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(taxcache.New),
	fx.Provide(service.NewService),
	fx.Provide(
		func(s *service.Service) taxdomain.Service { return s },
		func(s *service.Service) taxdomain.Resolver { return s },
	),
)
