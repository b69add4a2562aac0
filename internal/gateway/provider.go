package gateway

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

func ProvideHandler(registry *Registry, deps Deps, cfg Config, logger *slog.Logger) *Handler {
	return NewHandler(registry, deps, cfg, logger.With("component", "gateway"))
}

func registerShutdown(lc fx.Lifecycle, registry *Registry, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if n := registry.CloseAll(ReasonShutdown); n > 0 {
				logger.Info("closed relay connections", "count", n)
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(
		NewRegistry,
		ProvideHandler,
	),
	fx.Invoke(registerShutdown),
)
