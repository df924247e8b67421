package audit

import (
	"github.com/herbtrace/herbtrace/internal/audit/repository"
	"github.com/herbtrace/herbtrace/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
