package billing

import (
	"github.com/medisys/clinicore/internal/billing/repository"
	"github.com/medisys/clinicore/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
