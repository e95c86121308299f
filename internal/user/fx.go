package user

import (
	"github.com/medisys/clinicore/internal/user/repository"
	"github.com/medisys/clinicore/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
