package admission

import (
	"github.com/smallbiznis/clinicledger/internal/admission/repository"
	"github.com/smallbiznis/clinicledger/internal/admission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("admission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
