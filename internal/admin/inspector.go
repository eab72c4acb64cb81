// Package admin is the runtime's inspector: an HTTP API (chi) for
// point-in-time snapshots of the registered service handles and the env
// store (mailbox depth is not included), plus a websocket feed (gorilla/websocket) that live-pushes the same
// snapshot on an interval — the control-surface replacement for the
// teacher's gRPC API, chosen because it needs no protoc/buf codegen.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/runtime"
)

// ServiceSnapshot is one registered service's inspector-visible state.
type ServiceSnapshot struct {
	Handle handle.Handle `json:"handle"`
}

// Snapshot is the whole-runtime point-in-time view the inspector serves.
// ConnID identifies the websocket feed it was pushed over, assigned once
// per upgraded connection; zero on the one-shot HTTP /snapshot response.
type Snapshot struct {
	Services []ServiceSnapshot `json:"services"`
	Env      map[string]string `json:"env"`
	At       time.Time         `json:"at"`
	ConnID   uuid.UUID         `json:"conn_id,omitempty"`
}

// Inspector serves the HTTP + websocket admin surface over a Runtime.
type Inspector struct {
	rt       *runtime.Runtime
	upgrader websocket.Upgrader
}

// New creates an inspector for rt.
func New(rt *runtime.Runtime) *Inspector {
	return &Inspector{rt: rt}
}

func (in *Inspector) snapshot() Snapshot {
	handles := in.rt.Host.Lookup(4096)
	services := make([]ServiceSnapshot, len(handles))
	for i, h := range handles {
		services[i] = ServiceSnapshot{Handle: h}
	}
	return Snapshot{Services: services, Env: in.rt.Env.Snapshot()}
}

// Routes builds the chi router: GET /snapshot for a one-shot poll (the
// shape cmd/rtop polls) and GET /ws for the live-push feed.
func (in *Inspector) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/snapshot", in.handleSnapshot)
	r.Get("/ws", in.handleWS)
	return r
}

func (in *Inspector) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := in.snapshot()
	snap.At = nowOrZero()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (in *Inspector) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := uuid.New()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		snap := in.snapshot()
		snap.At = nowOrZero()
		snap.ConnID = connID
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func nowOrZero() time.Time {
	return time.Now()
}
