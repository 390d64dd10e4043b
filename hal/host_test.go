//go:build !tinygo

package hal

import (
	"bytes"
	"strings"
	"testing"
)

func TestHostTimeStepN(t *testing.T) {
	ht := &tickClock{ch: make(chan uint64, 2)}
	ht.stepN(3)

	if got := <-ht.Ticks(); got != 1 {
		t.Fatalf("first tick = %d, want 1", got)
	}
	if got := <-ht.Ticks(); got != 2 {
		t.Fatalf("second tick = %d, want 2", got)
	}
	select {
	case got := <-ht.Ticks():
		t.Fatalf("dropped tick delivered: %d", got)
	default:
	}
	if ht.seq != 3 {
		t.Fatalf("seq = %d, want 3", ht.seq)
	}
}

func TestHostFramebufferPresent(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(255, 0, 0)

	dst := make([]byte, len(fb.Buffer()))
	if seq := fb.snapshotRGB565(dst); seq != 0 {
		t.Fatalf("snapshot seq before Present = %d, want 0", seq)
	}
	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("unpresented pixel visible: %#x %#x", dst[0], dst[1])
	}

	if err := fb.Present(); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if seq := fb.snapshotRGB565(dst); seq != 1 {
		t.Fatalf("snapshot seq = %d, want 1", seq)
	}
	if got := uint16(dst[0]) | uint16(dst[1])<<8; got != 0xF800 {
		t.Fatalf("pixel = %#04x, want 0xf800", got)
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	r, g, b := rgb888From565(rgb565(255, 255, 255))
	if r != 255 || g != 255 || b != 255 {
		t.Fatalf("white = %d,%d,%d, want 255,255,255", r, g, b)
	}
	r, g, b = rgb888From565(rgb565(0, 0, 0))
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("black = %d,%d,%d, want 0,0,0", r, g, b)
	}
}

func TestHostLEDLogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	h := newHostHAL(&buf)
	led := h.LED()
	led.High()
	led.High()
	led.Low()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "led: HIGH" || lines[1] != "led: LOW" {
		t.Fatalf("log = %q, want HIGH then LOW", lines)
	}
}
