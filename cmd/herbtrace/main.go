package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/herbtrace/herbtrace/internal/config"
	"github.com/herbtrace/herbtrace/internal/migration"
	"github.com/herbtrace/herbtrace/internal/observability"
	"github.com/herbtrace/herbtrace/internal/server"
	"github.com/herbtrace/herbtrace/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
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
