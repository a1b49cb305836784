package observability

import (
	"github.com/smallgrid/voltera/internal/config"
	"github.com/smallgrid/voltera/internal/observability/metrics"
	"github.com/smallgrid/voltera/internal/observability/tracing"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMeterProvider bridges the otel metric API onto the process-wide
// prometheus registry so instruments show up on /metrics.
func NewMeterProvider() (metric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

var Module = fx.Module("observability",
	fx.Provide(NewMeterProvider),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: cfg.Observability.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
		_, err := tracing.NewProvider(lc, cfg, log)
		return err
	}),
)
