package timer

import "testing"

func TestFiresAfterExactDelay(t *testing.T) {
	w := New()
	fired := 0
	w.After(5, func() { fired++ })

	for i := 0; i < 4; i++ {
		w.Tick()
		if fired != 0 {
			t.Fatalf("fired early at tick %d", i+1)
		}
	}
	w.Tick()
	if fired != 1 {
		t.Fatalf("fired = %d after 5 ticks, want 1", fired)
	}
}

func TestCascadesAcrossFarLevels(t *testing.T) {
	w := New()
	fired := 0
	delay := uint32(near*2 + 10) // falls into a far level, not the near ring
	w.After(delay, func() { fired++ })

	for i := uint32(0); i < delay-1; i++ {
		w.Tick()
	}
	if fired != 0 {
		t.Fatalf("fired before its delay elapsed: fired=%d at tick %d", fired, delay-1)
	}
	w.Tick()
	if fired != 1 {
		t.Fatalf("fired = %d, want exactly 1 once the delay elapses", fired)
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	w := New()
	fired := false
	id := w.After(3, func() { fired = true })
	w.Cancel(id)

	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if fired {
		t.Fatal("canceled timer fired")
	}
}

func TestManyTimersFireInOrder(t *testing.T) {
	w := New()
	var order []int
	for i := 0; i < 20; i++ {
		d := uint32(i + 1)
		idx := i
		w.After(d, func() { order = append(order, idx) })
	}
	for i := 0; i < 20; i++ {
		w.Tick()
	}
	if len(order) != 20 {
		t.Fatalf("fired %d timers, want 20", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d (timers must fire in expiry order)", i, v, i)
		}
	}
}
