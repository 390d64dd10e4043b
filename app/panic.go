package app

import (
	"bytes"
	"fmt"
	"image/color"
	"runtime/debug"

	"sparkrt/hal"
	"sparkrt/internal/buildinfo"
	"sparkrt/monitor"
)

var (
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black = color.RGBA{A: 0xFF}
	red   = color.RGBA{R: 0xA0, A: 0xFF}
)

// PanicError reports a kernel thread that panicked.
type PanicError struct {
	Thread string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("app: thread %s panicked: %v", e.Thread, e.Value)
}

// guard wraps a thread entry so a panic is logged, drawn on the display and
// stops the system instead of tearing down the process.
func (s *System) guard(name string, entry func()) func() {
	return func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			perr := &PanicError{Thread: name, Value: r, Stack: debug.Stack()}
			panicScreen(s.h, perr)
			s.fail(perr)
		}()
		entry()
	}
}

func panicScreen(h hal.HAL, e *PanicError) {
	head := []string{
		"sparkrt panic",
		"thread: " + e.Thread,
		fmt.Sprintf("panic: %v", e.Value),
	}
	var stack [][]byte
	for _, line := range bytes.Split(e.Stack, []byte{'\n'}) {
		if len(line) > 0 {
			stack = append(stack, line)
		}
	}

	if l := h.Logger(); l != nil {
		for _, line := range head {
			l.WriteLineString(line)
		}
		for _, line := range stack {
			l.WriteLineBytes(line)
		}
	}

	lines := append(head, "stack:")
	if len(stack) == 0 {
		lines[len(lines)-1] = "stack: unavailable"
	}
	for _, line := range stack {
		lines = append(lines, string(line))
	}
	drawScreen(h, lines, white, red)
}

func bootScreen(h hal.HAL, msg string) {
	drawScreen(h, []string{buildinfo.String(), msg}, white, black)
}

func drawScreen(h hal.HAL, lines []string, fg, bg color.RGBA) {
	disp := h.Display()
	if disp == nil {
		return
	}
	_ = monitor.DrawText(disp.Framebuffer(), lines, fg, bg)
}
