// Package sim provides a deterministic kernel.Port that never executes thread
// code. The caller acts as whichever thread the kernel has dispatched and
// drives time explicitly with Tick, which makes scheduling decisions
// reproducible in tests and traces.
package sim

import (
	"sort"

	"sparkrt/kernel"
)

// Frame is a simulated execution context.
type Frame struct {
	ID       int
	Entry    func()
	Released bool
}

// Switch records one context switch.
type Switch struct {
	Tick uint64
	From *Frame
	To   *Frame
}

type line struct {
	enabled  bool
	pending  bool
	priority uint8
	handler  func()
}

// Port is a single-goroutine kernel.Port.
type Port struct {
	h kernel.Handlers

	primask   bool
	pendSV    bool
	halted    bool
	servicing bool
	started   bool

	ticks   int
	now     uint64
	lines   [kernel.IRQLast + 1]line
	frames  int
	current *Frame

	switches []Switch
}

var _ kernel.Port = (*Port)(nil)

// New returns an idle simulated port.
func New() *Port {
	return &Port{}
}

func (p *Port) Attach(h kernel.Handlers) { p.h = h }

func (p *Port) DisableInterrupts() kernel.IRQState {
	prev := p.primask
	p.primask = true
	if prev {
		return 1
	}
	return 0
}

func (p *Port) RestoreInterrupts(s kernel.IRQState) {
	p.primask = s != 0
	if !p.primask {
		p.service()
	}
}

func (p *Port) PendSwitch() { p.pendSV = true }

// WaitForInterrupt halts the simulated CPU until the next Tick or Raise.
func (p *Port) WaitForInterrupt() { p.halted = true }

func (p *Port) EnableIRQ(irq kernel.IRQ, priority uint8, handler func()) error {
	if int(irq) >= len(p.lines) {
		return kernel.ErrIRQInvalid
	}
	p.lines[irq] = line{enabled: true, priority: priority, handler: handler}
	return nil
}

func (p *Port) BuildInitialFrame(entry func()) kernel.Frame {
	p.frames++
	return &Frame{ID: p.frames, Entry: entry}
}

func (p *Port) SwitchContext(from, to kernel.Frame) {
	f, _ := from.(*Frame)
	t, _ := to.(*Frame)
	p.switches = append(p.switches, Switch{Tick: p.now, From: f, To: t})
	p.current = t
}

func (p *Port) ReleaseFrame(f kernel.Frame) {
	if fr, ok := f.(*Frame); ok {
		fr.Released = true
	}
}

// Start marks the port running with first as the current context and returns
// immediately.
func (p *Port) Start(first kernel.Frame) error {
	p.current, _ = first.(*Frame)
	p.started = true
	if !p.primask {
		p.service()
	}
	return nil
}

// Tick raises one time base interrupt and services it.
func (p *Port) Tick() {
	p.ticks++
	p.halted = false
	if !p.primask {
		p.service()
	}
}

// Run raises n ticks.
func (p *Port) Run(n int) {
	for i := 0; i < n; i++ {
		p.Tick()
	}
}

// Raise pends a hardware interrupt line and services it.
func (p *Port) Raise(irq kernel.IRQ) {
	if int(irq) >= len(p.lines) || !p.lines[irq].enabled {
		return
	}
	p.lines[irq].pending = true
	p.halted = false
	if !p.primask {
		p.service()
	}
}

// Current returns the frame of the dispatched thread.
func (p *Port) Current() *Frame { return p.current }

// Switches returns every context switch taken so far.
func (p *Port) Switches() []Switch { return p.switches }

// Halted reports whether the CPU is waiting for an interrupt.
func (p *Port) Halted() bool { return p.halted }

func (p *Port) service() {
	if p.servicing {
		return
	}
	p.servicing = true
	defer func() { p.servicing = false }()

	for {
		if irq, ok := p.nextLine(); ok {
			p.lines[irq].pending = false
			p.isr(p.lines[irq].handler)
			continue
		}
		if p.ticks > 0 {
			p.ticks--
			p.now++
			p.isr(p.h.Tick)
			continue
		}
		if p.pendSV && p.started && !p.halted {
			p.pendSV = false
			if p.h.Switch != nil {
				p.h.Switch()
			}
			continue
		}
		return
	}
}

func (p *Port) isr(fn func()) {
	if fn == nil {
		return
	}
	p.primask = true
	fn()
	p.primask = false
}

func (p *Port) nextLine() (kernel.IRQ, bool) {
	var pending []int
	for i := range p.lines {
		if p.lines[i].pending {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return 0, false
	}
	sort.SliceStable(pending, func(a, b int) bool {
		return p.lines[pending[a]].priority < p.lines[pending[b]].priority
	})
	return kernel.IRQ(pending[0]), true
}
