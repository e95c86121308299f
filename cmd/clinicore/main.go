package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/migration"
	"github.com/medisys/clinicore/internal/observability"
	"github.com/medisys/clinicore/internal/server"
	"github.com/medisys/clinicore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
