package reactor

import (
	"net"
	"testing"
)

func TestUDPAddressRoundTripV4(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 5353}
	wire := encodeUDPAddress(addr)
	if len(wire) != 1+2+4 {
		t.Fatalf("encoded v4 address len = %d, want 7", len(wire))
	}

	got, ok := decodeUDPAddress(wire, ProtoUDP)
	if !ok {
		t.Fatal("decode failed")
	}
	if !got.IP.Equal(addr.IP) || got.Port != addr.Port {
		t.Fatalf("decoded %v:%d, want %v:%d", got.IP, got.Port, addr.IP, addr.Port)
	}
}

func TestUDPAddressRoundTripV6(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("2001:db8::1"), Port: 443}
	wire := encodeUDPAddress(addr)
	if len(wire) != 1+2+16 {
		t.Fatalf("encoded v6 address len = %d, want 19", len(wire))
	}

	got, ok := decodeUDPAddress(wire, ProtoUDPv6)
	if !ok {
		t.Fatal("decode failed")
	}
	if !got.IP.Equal(addr.IP) || got.Port != addr.Port {
		t.Fatalf("decoded %v:%d, want %v:%d", got.IP, got.Port, addr.IP, addr.Port)
	}
}

func TestUDPAddressProtocolMismatchRejected(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 80}
	wire := encodeUDPAddress(addr)
	if _, ok := decodeUDPAddress(wire, ProtoUDPv6); ok {
		t.Fatal("decoding a v4 wire address as v6 should fail")
	}
}
