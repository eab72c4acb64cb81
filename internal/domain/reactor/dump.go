package reactor

import (
	"fmt"
	"strings"
)

const dumpLineSize = 0x10

// HexDump renders data the way the runtime's diagnostic dump does: 16
// bytes per line, grouped in pairs with an extra gap every 8 bytes, an
// ASCII sidebar for printable bytes (32-127) and '.' elsewhere, and a
// blank line every 16 lines. Used for the payloads written to per-service
// log files and to the log service.
func HexDump(data []byte) string {
	var b strings.Builder
	lines := len(data) / dumpLineSize
	for i := 0; i < lines; i++ {
		dumpLine(&b, i, data[i*dumpLineSize:(i+1)*dumpLineSize])
	}
	if rem := len(data) % dumpLineSize; rem > 0 {
		dumpLine(&b, lines, data[lines*dumpLineSize:])
	}
	return b.String()
}

func dumpLine(b *strings.Builder, line int, data []byte) {
	fmt.Fprintf(b, "%08x: ", line*dumpLineSize)
	for i := 0; i < dumpLineSize; i++ {
		if i%8 == 0 {
			b.WriteByte(' ')
		}
		if i < len(data) {
			fmt.Fprintf(b, "%02x", data[i])
		} else {
			b.WriteString("  ")
		}
		if i%2 != 0 {
			b.WriteByte(' ')
		}
	}
	b.WriteString("  ")
	for i := 0; i < dumpLineSize; i++ {
		if i >= len(data) {
			b.WriteByte(' ')
			continue
		}
		c := data[i]
		if c >= 32 && c <= 127 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	b.WriteByte('\n')
	if line%dumpLineSize == dumpLineSize-1 {
		b.WriteByte('\n')
	}
}
