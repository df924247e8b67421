package compliance

import (
	"github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/compliance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("compliance",
	fx.Provide(
		domain.DefaultRuleSet,
		service.NewService,
	),
)
