package kernel

const (
	// IRQFirst and IRQLast bound the interrupt lines aperiodic events may use.
	IRQFirst IRQ = 0
	IRQLast  IRQ = 40

	// MaxHWIPriority is the lowest priority an aperiodic event may run at.
	// Level 7 belongs to the kernel's tick and switch interrupts.
	MaxHWIPriority uint8 = 6
	// KernelIRQPriority is the level of the tick and the deferred switch.
	KernelIRQPriority uint8 = 7
)

// ptcb is a periodic thread control block: a callback run inline by the
// time base every period ticks.
type ptcb struct {
	handler func()
	period  uint32
	due     uint64
	next    *ptcb
	prev    *ptcb
}

// AddPeriodicEvent runs handler from the tick interrupt every period ticks.
// Handlers must be short and must not block. Events registered together are
// staggered by one tick each so they do not all fire on the same tick.
func (k *Kernel) AddPeriodicEvent(handler func(), period uint32) error {
	if handler == nil {
		panic("kernel: nil periodic handler")
	}
	if period == 0 {
		period = 1
	}
	cs := k.enter()
	defer cs.exit()

	if k.nptcbs >= len(k.ptcbs) {
		return ErrThreadLimitReached
	}

	n := k.nptcbs
	p := &k.ptcbs[n]
	p.handler = handler
	p.period = period
	p.due = k.now + uint64(period) + uint64(n)

	if n == 0 {
		p.next, p.prev = p, p
		k.ptcur = p
	} else {
		first := &k.ptcbs[0]
		last := &k.ptcbs[n-1]
		p.next = first
		p.prev = last
		last.next = p
		first.prev = p
	}
	k.nptcbs++
	k.logf("kernel: add periodic event period=%d due=%d", period, p.due)
	return nil
}

// AddAperiodicEvent attaches handler to a hardware interrupt line. priority
// must be between 0 and MaxHWIPriority so the handler can preempt the kernel.
func (k *Kernel) AddAperiodicEvent(handler func(), priority uint8, irq IRQ) error {
	if handler == nil {
		panic("kernel: nil aperiodic handler")
	}
	cs := k.enter()
	defer cs.exit()

	if irq > IRQLast {
		return ErrIRQInvalid
	}
	if priority > MaxHWIPriority {
		return ErrHWIPriorityInvalid
	}
	if err := k.port.EnableIRQ(irq, priority, handler); err != nil {
		return err
	}
	k.logf("kernel: add aperiodic event irq=%d prio=%d", irq, priority)
	return nil
}
