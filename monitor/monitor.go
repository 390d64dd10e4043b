// Package monitor shows the kernel's thread table on a framebuffer and
// summarises it on the log.
package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"sparkrt/hal"
	"sparkrt/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Snapshot is a point-in-time copy of the scheduler state.
type Snapshot struct {
	Tick    uint64
	Policy  string
	Threads []kernel.ThreadInfo
	FIFOs   []kernel.FIFOInfo
}

// Take captures a snapshot of k.
func Take(k *kernel.Kernel) Snapshot {
	return Snapshot{
		Tick:    k.Now(),
		Policy:  k.Policy().String(),
		Threads: k.Threads(),
		FIFOs:   k.FIFOStats(),
	}
}

// State returns a short label for a thread's scheduling state.
func State(ti kernel.ThreadInfo) string {
	switch {
	case ti.Current:
		return "run"
	case ti.Blocked:
		return "wait"
	case ti.Asleep:
		return "sleep"
	default:
		return "ready"
	}
}

// WriteTable prints s as a fixed-width table.
func WriteTable(w io.Writer, s Snapshot) error {
	if _, err := fmt.Fprintf(w, "tick %d  %s\n", s.Tick, s.Policy); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-6s %-16s %3s %4s %4s %s\n", "ID", "NAME", "PRI", "BASE", "AGE", "STATE"); err != nil {
		return err
	}
	for _, ti := range s.Threads {
		if _, err := fmt.Fprintf(w, "%-6s %-16s %3d %4d %4d %s\n",
			ti.ID, ti.Name, ti.Priority, ti.BasePriority, ti.Age, State(ti)); err != nil {
			return err
		}
	}
	for _, f := range s.FIFOs {
		if f.Len == 0 && f.Lost == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "fifo %d  %d/%d  lost %d\n", f.Index, f.Len, f.Cap, f.Lost); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns a one-line digest of s for the log.
func Summary(s Snapshot) string {
	running := "-"
	var waiting, sleeping int
	for _, ti := range s.Threads {
		switch {
		case ti.Current:
			running = ti.Name
		case ti.Blocked:
			waiting++
		case ti.Asleep:
			sleeping++
		}
	}
	var lost uint32
	for _, f := range s.FIFOs {
		lost += f.Lost
	}
	return fmt.Sprintf("monitor: tick=%d threads=%d run=%s wait=%d sleep=%d lost=%d",
		s.Tick, len(s.Threads), running, waiting, sleeping, lost)
}

const (
	lineHeight = 10
	baseline   = 7
)

var (
	fg        = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	highlight = color.RGBA{R: 0x10, G: 0x30, B: 0x70, A: 0xFF}
)

// Monitor renders snapshots. A nil display or a framebuffer without memory
// disables rendering; the log summary is still written.
type Monitor struct {
	fb  hal.Framebuffer
	d   fbDisplay
	log hal.Logger
	buf bytes.Buffer
}

// New returns a monitor for disp. Both arguments may be nil.
func New(disp hal.Display, log hal.Logger) *Monitor {
	m := &Monitor{log: log}
	if disp != nil {
		if fb := disp.Framebuffer(); fb != nil && fb.Buffer() != nil && fb.Format() == hal.PixelFormatRGB565 {
			m.fb = fb
			m.d.fb = fb
		}
	}
	return m
}

// Update logs the summary of s and redraws the screen. Rows that do not fit
// are cut off.
func (m *Monitor) Update(s Snapshot) error {
	if m.log != nil {
		m.log.WriteLineString(Summary(s))
	}
	if m.fb == nil {
		return nil
	}

	m.buf.Reset()
	if err := WriteTable(&m.buf, s); err != nil {
		return err
	}

	m.fb.ClearRGB(0, 0, 0)
	w, h := m.d.Size()
	lines := strings.Split(strings.TrimRight(m.buf.String(), "\n"), "\n")
	for i, line := range lines {
		y := int16(i * lineHeight)
		if y+lineHeight > h {
			break
		}
		if strings.HasSuffix(line, " run") {
			m.d.FillRectangle(0, y, w, lineHeight, highlight)
		}
		tinyfont.WriteLine(&m.d, &proggy.TinySZ8pt7b, 2, y+baseline, line, fg)
	}
	return m.d.Display()
}
