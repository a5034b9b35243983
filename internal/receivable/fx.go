package receivable

import (
	"github.com/smallbiznis/clinicledger/internal/receivable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receivable.service",
	fx.Provide(service.NewService),
)
