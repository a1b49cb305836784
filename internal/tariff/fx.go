package tariff

import (
	"github.com/smallgrid/voltera/internal/tariff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tariff.service",
	fx.Provide(service.NewService),
)
