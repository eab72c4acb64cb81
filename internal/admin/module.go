package admin

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/fx"
)

// Module provides the inspector and starts its HTTP server alongside the
// rest of the fx app's lifecycle.
var Module = fx.Module("admin",
	fx.Provide(New),
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, in *Inspector) {
	srv := &http.Server{Handler: in.Routes()}
	var ln net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			ln, err = net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return err
			}
			go srv.Serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
