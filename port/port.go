// Package port implements kernel.Port on goroutines.
//
// Every kernel thread is backed by a goroutine, but only one of them holds the
// CPU at a time: SwitchContext resumes the target and parks the caller.
// Interrupt sources (the tick pump, Raise) running on other goroutines only
// mark work as pending; it is serviced on the goroutine holding the CPU the
// next time it re-enables interrupts, which is what a Cortex-M does with a
// pended exception. Threads are therefore preempted at kernel calls.
package port

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"sparkrt/kernel"
)

// ErrStopped is returned by Start when the port was stopped.
var ErrStopped = errors.New("port: stopped")

type frame struct {
	entry   func()
	resume  chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

type vector struct {
	priority uint8
	handler  func()
}

// Port is a goroutine-backed kernel.Port.
type Port struct {
	h kernel.Handlers

	// Owned by the goroutine holding the CPU. Before Start that is the
	// caller of Launch, which must never service interrupts.
	running   bool
	primask   bool
	pendSV    bool
	servicing bool
	hw        hwMask
	vectors   [kernel.IRQLast + 1]vector

	// Raised from any goroutine.
	ticks   atomic.Uint32
	lines   atomic.Uint64
	wake    chan struct{}
	stop    chan struct{}
	stopped sync.Once
}

var _ kernel.Port = (*Port)(nil)

// New returns a port that is not started.
func New() *Port {
	return &Port{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

func (p *Port) Attach(h kernel.Handlers) { p.h = h }

func (p *Port) DisableInterrupts() kernel.IRQState {
	prev := p.primask
	if !prev {
		p.hw.disable()
	}
	p.primask = true
	if prev {
		return 1
	}
	return 0
}

func (p *Port) RestoreInterrupts(s kernel.IRQState) {
	if s != 0 {
		p.primask = true
		return
	}
	p.primask = false
	p.hw.restore()
	p.service()
}

func (p *Port) PendSwitch() { p.pendSV = true }

func (p *Port) WaitForInterrupt() {
	if p.ticks.Load() > 0 || p.lines.Load() != 0 {
		return
	}
	select {
	case <-p.wake:
	case <-p.stop:
		runtime.Goexit()
	}
}

func (p *Port) EnableIRQ(irq kernel.IRQ, priority uint8, handler func()) error {
	if int(irq) >= len(p.vectors) {
		return kernel.ErrIRQInvalid
	}
	p.vectors[irq] = vector{priority: priority, handler: handler}
	return nil
}

func (p *Port) BuildInitialFrame(entry func()) kernel.Frame {
	return &frame{
		entry:  entry,
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (p *Port) SwitchContext(from, to kernel.Frame) {
	f := from.(*frame)
	p.resume(to.(*frame))
	p.park(f)
}

func (p *Port) ReleaseFrame(f kernel.Frame) {
	fr, ok := f.(*frame)
	if !ok || fr.closed {
		return
	}
	fr.closed = true
	close(fr.done)
}

// Start runs the first context and blocks until Stop. Interrupts pended
// before Start are serviced by the first thread.
func (p *Port) Start(first kernel.Frame) error {
	select {
	case <-p.stop:
		return ErrStopped
	default:
	}
	p.running = true
	p.resume(first.(*frame))
	<-p.stop
	return ErrStopped
}

// Stop ends Start. Parked thread goroutines exit; the running one exits at
// its next kernel call.
func (p *Port) Stop() {
	p.stopped.Do(func() { close(p.stop) })
}

// Done is closed once Stop is called.
func (p *Port) Done() <-chan struct{} { return p.stop }

// RaiseTick pends one time base interrupt. Safe from any goroutine.
func (p *Port) RaiseTick() {
	p.ticks.Add(1)
	p.notify()
}

// Raise pends a hardware interrupt line. Safe from any goroutine.
func (p *Port) Raise(irq kernel.IRQ) {
	if irq > kernel.IRQLast {
		return
	}
	bit := uint64(1) << irq
	for {
		old := p.lines.Load()
		if p.lines.CompareAndSwap(old, old|bit) {
			break
		}
	}
	p.notify()
}

func (p *Port) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Port) resume(f *frame) {
	if !f.started {
		f.started = true
		go p.run(f)
		return
	}
	f.resume <- struct{}{}
}

func (p *Port) park(f *frame) {
	select {
	case <-f.resume:
	case <-f.done:
		runtime.Goexit()
	case <-p.stop:
		runtime.Goexit()
	}
}

func (p *Port) run(f *frame) {
	// A fresh context starts outside of any interrupt handler.
	p.servicing = false
	p.primask = false
	f.entry()
}

func (p *Port) service() {
	if p.servicing || !p.running {
		return
	}
	p.servicing = true
	for {
		select {
		case <-p.stop:
			runtime.Goexit()
		default:
		}

		if irq, ok := p.takeLine(); ok {
			p.isr(p.vectors[irq].handler)
			continue
		}
		if n := p.ticks.Load(); n > 0 && p.ticks.CompareAndSwap(n, n-1) {
			p.isr(p.h.Tick)
			continue
		}
		if p.pendSV {
			p.pendSV = false
			if p.h.Switch != nil {
				p.h.Switch()
			}
			continue
		}
		break
	}
	p.servicing = false
}

func (p *Port) isr(fn func()) {
	if fn == nil {
		return
	}
	p.primask = true
	p.hw.disable()
	fn()
	p.hw.restore()
	p.primask = false
}

// takeLine claims the pending line with the best priority.
func (p *Port) takeLine() (kernel.IRQ, bool) {
	for {
		pending := p.lines.Load()
		if pending == 0 {
			return 0, false
		}
		best := -1
		for i := range p.vectors {
			if pending&(1<<uint(i)) == 0 {
				continue
			}
			if best < 0 || p.vectors[i].priority < p.vectors[best].priority {
				best = i
			}
		}
		if p.lines.CompareAndSwap(pending, pending&^(1<<uint(best))) {
			return kernel.IRQ(best), true
		}
	}
}
