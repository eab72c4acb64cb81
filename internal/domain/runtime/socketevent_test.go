package runtime

import (
	"bytes"
	"testing"

	"github.com/webitel/actorhost/internal/domain/reactor"
)

func TestEncodeDecodeDataEvent(t *testing.T) {
	ev := reactor.Event{Kind: reactor.EventData, Data: []byte("payload")}
	wire := encodeSocketEvent(ev)

	kind, udpAddr, data := DecodeSocketEvent(wire)
	if kind != reactor.EventData {
		t.Fatalf("kind = %v, want EventData", kind)
	}
	if udpAddr != nil {
		t.Fatalf("expected no udp address on a data event, got %v", udpAddr)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("data = %q, want %q", data, "payload")
	}
}

func TestEncodeDecodeUDPEvent(t *testing.T) {
	addr := []byte{0, 1, 2, 3, 4, 5, 6}
	ev := reactor.Event{Kind: reactor.EventUDP, UDPAddr: addr, Data: []byte("dgram")}
	wire := encodeSocketEvent(ev)

	kind, gotAddr, data := DecodeSocketEvent(wire)
	if kind != reactor.EventUDP {
		t.Fatalf("kind = %v, want EventUDP", kind)
	}
	if !bytes.Equal(gotAddr, addr) {
		t.Fatalf("udp address = %v, want %v", gotAddr, addr)
	}
	if !bytes.Equal(data, []byte("dgram")) {
		t.Fatalf("data = %q, want %q", data, "dgram")
	}
}
