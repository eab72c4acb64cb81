package telemetry

import (
	"context"
	"testing"
)

func TestNewBuildsInstruments(t *testing.T) {
	tel, err := New(nil, "actorhost-test")
	if err != nil {
		t.Fatal(err)
	}
	if tel.Tracer == nil || tel.MailboxDepth == nil || tel.OverloadTotal == nil ||
		tel.TimerFired == nil || tel.DeadLetters == nil {
		t.Fatal("New returned a Telemetry with a nil field")
	}
}

func TestStartDispatchReturnsASpan(t *testing.T) {
	tel, err := New(nil, "actorhost-test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, span := tel.StartDispatch(context.Background(), "svc")
	defer span.End()
	if ctx == nil || span == nil {
		t.Fatal("StartDispatch returned a nil context or span")
	}
}
