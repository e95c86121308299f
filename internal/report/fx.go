package report

import (
	"github.com/medisys/clinicore/internal/report/repository"
	"github.com/medisys/clinicore/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
