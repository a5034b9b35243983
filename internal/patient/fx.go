package patient

import (
	"github.com/smallbiznis/clinicledger/internal/patient/repository"
	"github.com/smallbiznis/clinicledger/internal/patient/service"
	"go.uber.org/fx"
)

var Module = fx.Module("patient.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
