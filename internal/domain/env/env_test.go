package env

import "testing"

func TestSetGet(t *testing.T) {
	s := New()
	s.Set("thread", "4")
	v, ok := s.Get("thread")
	if !ok || v != "4" {
		t.Fatalf("Get(thread) = (%q, %v), want (4, true)", v, ok)
	}
}

func TestRequireMissingKey(t *testing.T) {
	s := New()
	if _, err := s.Require("log"); err == nil {
		t.Fatal("expected an error for a missing required key")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Set("main", "boot")
	snap := s.Snapshot()
	snap["main"] = "mutated"

	v, _ := s.Get("main")
	if v != "boot" {
		t.Fatalf("Snapshot mutation leaked into the store: Get(main) = %q", v)
	}
}
