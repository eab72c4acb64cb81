package runtime

import (
	"log/slog"

	"github.com/webitel/actorhost/internal/domain/message"
	"github.com/webitel/actorhost/internal/domain/service"
)

// defaultBootstrap is the runtime's built-in "main" service: service_start
// always launches a bootstrap actor from the config's "main" key, even
// when the host program supplies none of its own via Config.Bootstrap —
// the same role the original's lua_mod plays by default, minus the
// scripting engine.
func defaultBootstrap(log *slog.Logger) service.Module {
	return service.Module{
		Create: func(ctx *service.Context, args string) (any, error) {
			log.Info("bootstrap service started", "args", args)
			return nil, nil
		},
		Dispatch: func(ctx *service.Context, ud any, m message.Message) {
			log.Info("bootstrap received message", "source", m.Source, "proto", m.Proto.String())
		},
	}
}
