package runtime

import "github.com/webitel/actorhost/internal/domain/reactor"

// socketEventTag mirrors reactor.EventKind as the first byte of a SOCKET
// message's payload, the encoding a service's Dispatch switches on — the
// Go analogue of the original's SERVICE_PROTO_SOCKET message carrying a
// struct socket_message with its own type tag.
type socketEventTag byte

const (
	tagOpen socketEventTag = iota
	tagAccept
	tagData
	tagUDP
	tagClose
	tagError
	tagWarning
)

// encodeSocketEvent packs a reactor.Event into a message payload: one tag
// byte, then (for UDP) a length-prefixed encoded sender address, then the
// raw data or error text.
func encodeSocketEvent(ev reactor.Event) []byte {
	tag := socketEventTag(ev.Kind)
	switch ev.Kind {
	case reactor.EventUDP:
		out := make([]byte, 0, 2+len(ev.UDPAddr)+len(ev.Data))
		out = append(out, byte(tag), byte(len(ev.UDPAddr)))
		out = append(out, ev.UDPAddr...)
		out = append(out, ev.Data...)
		return out
	case reactor.EventError:
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return append([]byte{byte(tag)}, msg...)
	default:
		return append([]byte{byte(tag)}, ev.Data...)
	}
}

// DecodeSocketEvent is the inverse of encodeSocketEvent, exposed so a
// service's Dispatch can recover the structured event from a SOCKET
// message's Data.
func DecodeSocketEvent(payload []byte) (kind reactor.EventKind, udpAddr, data []byte) {
	if len(payload) == 0 {
		return 0, nil, nil
	}
	kind = reactor.EventKind(payload[0])
	rest := payload[1:]
	if kind == reactor.EventUDP && len(rest) > 0 {
		n := int(rest[0])
		rest = rest[1:]
		if n <= len(rest) {
			return kind, rest[:n], rest[n:]
		}
	}
	return kind, nil, rest
}
