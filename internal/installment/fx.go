package installment

import (
	"github.com/smallbiznis/clinicledger/internal/installment/repository"
	"github.com/smallbiznis/clinicledger/internal/installment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("installment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
