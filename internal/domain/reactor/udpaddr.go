package reactor

import (
	"encoding/binary"
	"net"
)

// udpAddressSize is the wire size of an encoded UDP peer address: a
// 1-byte protocol tag, a 2-byte port, and a 4- or 16-byte IP.
const udpAddressSize = 19

// encodeUDPAddress packs addr the way gen_udp_address does: tag, then
// port, then the raw address bytes (4 for v4, 16 for v6).
func encodeUDPAddress(addr *net.UDPAddr) []byte {
	ip4 := addr.IP.To4()
	if ip4 != nil {
		out := make([]byte, 1+2+4)
		out[0] = byte(ProtoUDP)
		binary.BigEndian.PutUint16(out[1:3], uint16(addr.Port))
		copy(out[3:], ip4)
		return out
	}
	ip16 := addr.IP.To16()
	out := make([]byte, 1+2+16)
	out[0] = byte(ProtoUDPv6)
	binary.BigEndian.PutUint16(out[1:3], uint16(addr.Port))
	copy(out[3:], ip16)
	return out
}

// decodeUDPAddress is the inverse of encodeUDPAddress. It returns false if
// wantProtocol doesn't match the tag byte — udp_socket_address refuses to
// send a v4 address on a v6 socket and vice versa.
func decodeUDPAddress(wire []byte, wantProtocol Protocol) (*net.UDPAddr, bool) {
	if len(wire) < 3 || Protocol(wire[0]) != wantProtocol {
		return nil, false
	}
	port := binary.BigEndian.Uint16(wire[1:3])
	switch wantProtocol {
	case ProtoUDP:
		if len(wire) < 3+4 {
			return nil, false
		}
		return &net.UDPAddr{IP: net.IP(append([]byte(nil), wire[3:7]...)), Port: int(port)}, true
	case ProtoUDPv6:
		if len(wire) < 3+16 {
			return nil, false
		}
		return &net.UDPAddr{IP: net.IP(append([]byte(nil), wire[3:19]...)), Port: int(port)}, true
	default:
		return nil, false
	}
}
