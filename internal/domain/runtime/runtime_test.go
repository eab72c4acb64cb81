package runtime

import (
	"testing"
	"time"

	"github.com/webitel/actorhost/internal/domain/service"
)

func TestNewStartStop(t *testing.T) {
	rt, err := New(Config{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	rt.Start()
	defer rt.Stop()

	time.Sleep(10 * time.Millisecond)
}

func TestStopReleasesLiveServices(t *testing.T) {
	rt, err := New(Config{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	rt.Start()

	released := make(chan struct{}, 1)
	h, err := rt.Host.Register(service.Module{
		Create:  func(ctx *service.Context, args string) (any, error) { return nil, nil },
		Release: func(ud any) { released <- struct{}{} },
	}, "")
	if err != nil {
		t.Fatal(err)
	}

	rt.Stop()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("expected Stop to release the still-registered service")
	}

	_ = h
}
