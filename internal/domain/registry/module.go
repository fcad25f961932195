package registry

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		NewRegistry,
		func(r *Registry) Registrar { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *Registry) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				r.Clear()
				return nil
			},
		})
	}),
)
