package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/webitel/actorhost/internal/domain/runtime"
)

func TestHandleSnapshotReturnsRegisteredServices(t *testing.T) {
	rt, err := runtime.New(runtime.Config{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	rt.Start()
	defer rt.Stop()

	in := New(rt)
	srv := httptest.NewServer(in.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Env == nil {
		t.Fatal("expected the env snapshot to be present, even if empty")
	}
}
