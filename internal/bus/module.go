package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/fx"
)

// Module provides the lifecycle Bus to the fx graph, the same
// fx.Module/fx.Provide shape the teacher uses for its own adapters.
var Module = fx.Module("bus",
	fx.Provide(func(logger watermill.LoggerAdapter) *Bus {
		return New(logger)
	}),
	fx.Invoke(func(lc fx.Lifecycle, b *Bus) {
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return b.Close()
			},
		})
	}),
)
