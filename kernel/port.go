package kernel

// IRQState is the interrupt-enable state saved by DisableInterrupts.
type IRQState uint32

// IRQ numbers a hardware interrupt line that aperiodic events can attach to.
type IRQ uint8

// Frame is a thread's saved execution context. Its contents belong to the
// Port that built it; the kernel only stores it and hands it back.
type Frame any

// Handlers are the kernel entry points a Port invokes from interrupt context.
type Handlers struct {
	// Tick runs once per time base interrupt with interrupts masked.
	Tick func()
	// Switch runs at the lowest interrupt priority when a switch is pending
	// and interrupts are enabled.
	Switch func()
}

// Port is the architecture boundary of the kernel: interrupt masking, the
// deferred switch request, and execution contexts.
//
// Exactly one execution context runs kernel code at a time. A port services
// pending interrupts, then a pending switch, whenever RestoreInterrupts
// re-enables interrupts.
type Port interface {
	Attach(h Handlers)

	DisableInterrupts() IRQState
	RestoreInterrupts(s IRQState)

	// PendSwitch requests a context switch once interrupts are enabled and
	// no higher priority interrupt is running.
	PendSwitch()

	// WaitForInterrupt halts until an interrupt is pending.
	WaitForInterrupt()

	// EnableIRQ routes a hardware interrupt line to handler.
	EnableIRQ(irq IRQ, priority uint8, handler func()) error

	// BuildInitialFrame returns a context that starts executing entry the
	// first time it is switched to.
	BuildInitialFrame(entry func()) Frame

	// SwitchContext saves the running context into from and restores to.
	// It returns when from is switched back in; a released from never returns.
	SwitchContext(from, to Frame)

	// ReleaseFrame discards a frame whose thread was killed.
	ReleaseFrame(f Frame)

	// Start restores the first context and runs until the port stops.
	Start(first Frame) error
}
