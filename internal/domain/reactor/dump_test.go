package reactor

import (
	"strings"
	"testing"
)

func TestHexDumpShowsOffsetAndASCII(t *testing.T) {
	data := []byte("Hello, actorhost!")
	out := HexDump(data)

	if !strings.HasPrefix(out, "00000000: ") {
		t.Fatalf("missing offset prefix: %q", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Fatalf("ASCII sidebar missing printable text: %q", out)
	}
}

func TestHexDumpNonPrintableBytesShowDot(t *testing.T) {
	out := HexDump([]byte{0x00, 0x01, 0x02})
	if !strings.Contains(out, "...") {
		t.Fatalf("expected non-printable bytes rendered as '.': %q", out)
	}
}

func TestHexDumpBlankLineEvery16Lines(t *testing.T) {
	data := make([]byte, dumpLineSize*17)
	out := HexDump(data)
	lines := strings.Split(out, "\n")
	// line index 15 (the 16th data line, zero-based) must be followed by a blank line.
	if lines[16] != "" {
		t.Fatalf("expected a blank separator after 16 lines, got %q", lines[16])
	}
}
