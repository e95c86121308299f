package audit

import (
	"github.com/medisys/clinicore/internal/audit/repository"
	"github.com/medisys/clinicore/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
