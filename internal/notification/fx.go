package notification

import (
	"github.com/medisys/clinicore/internal/notification/repository"
	"github.com/medisys/clinicore/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
