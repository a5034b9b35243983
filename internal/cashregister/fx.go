package cashregister

import (
	"github.com/smallbiznis/clinicledger/internal/cashregister/repository"
	"github.com/smallbiznis/clinicledger/internal/cashregister/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cashregister.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
