package batch

import (
	"github.com/herbtrace/herbtrace/internal/batch/repository"
	"github.com/herbtrace/herbtrace/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
