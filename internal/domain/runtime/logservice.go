package runtime

import (
	"fmt"
	"io"

	"github.com/webitel/actorhost/internal/domain/message"
	"github.com/webitel/actorhost/internal/domain/reactor"
	"github.com/webitel/actorhost/internal/domain/service"
)

// newLogModule builds the runtime's bootstrap log service: every message
// sent to it is written to w prefixed with its sender's handle and
// flushed immediately, the Go analogue of log_dispatch. A SOCKET message
// is written as a "[socket] id" header followed by a hex dump of its
// payload. The host forwards nothing here on its own: a service that
// wants a line in this log sends to Runtime.LogHandle itself.
func newLogModule(w io.Writer) service.Module {
	return service.Module{
		Dispatch: func(ctx *service.Context, ud any, m message.Message) {
			if m.Proto == message.Socket {
				fmt.Fprintf(w, "[socket] %d\n%s", m.Session, reactor.HexDump(m.Data))
			} else {
				fmt.Fprintf(w, "[%d] %s\n", m.Source, m.Data)
			}
			if f, ok := w.(interface{ Sync() error }); ok {
				f.Sync()
			}
		},
	}
}
