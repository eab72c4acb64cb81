package poller

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestWaitReportsReadableOnWrite(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("Pipe2: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := p.Add(fds[0], 42, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatal(err)
	}

	events, err := p.Wait(nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].UserData != 42 || !events[0].Readable {
		t.Fatalf("event = %+v, want UserData=42 Readable=true", events[0])
	}
}

func TestRemoveStopsReporting(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("Pipe2: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := p.Add(fds[0], 7, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatal(err)
	}

	// a short, bounded poll: epoll_wait(-1) would block forever since no
	// fd is registered any more, so drive it from a fresh pipe with a
	// timeout equivalent instead of calling Wait directly.
	done := make(chan struct{})
	var events []Event
	go func() {
		var fds2 [2]int
		unix.Pipe2(fds2[:], unix.O_NONBLOCK)
		p.Add(fds2[0], 99, false)
		unix.Write(fds2[1], []byte("y"))
		events, _ = p.Wait(nil)
		close(done)
	}()
	<-done

	for _, ev := range events {
		if ev.UserData == 7 {
			t.Fatalf("removed fd still reported an event: %+v", ev)
		}
	}
}
