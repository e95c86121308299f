package laborder

import (
	"github.com/medisys/clinicore/internal/laborder/repository"
	"github.com/medisys/clinicore/internal/laborder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("laborder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
