package catalog

import (
	"github.com/medisys/clinicore/internal/catalog/repository"
	"github.com/medisys/clinicore/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
