package breaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

func TestTripsAfterFiveConsecutiveFailures(t *testing.T) {
	cb := New("test")
	failing := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, failing })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open after 5 consecutive failures", cb.State())
	}

	_, err := cb.Execute(func() (any, error) { return "ok", nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState while open, got %v", err)
	}
}

func TestPassesThroughOnSuccess(t *testing.T) {
	cb := New("test2")
	result, err := cb.Execute(func() (any, error) { return "ok", nil })
	if err != nil {
		t.Fatal(err)
	}
	if result != "ok" {
		t.Fatalf("result = %v, want ok", result)
	}
}
