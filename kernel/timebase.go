package kernel

// tick is the time base interrupt: it advances the system tick, runs due
// periodic events, wakes sleepers and pends a context switch.
func (k *Kernel) tick() {
	cs := k.enter()
	defer cs.exit()

	k.now++

	p := k.ptcur
	for i := 0; i < k.nptcbs; i++ {
		p = p.next
		if p.due == k.now {
			p.due = k.now + uint64(p.period)
			p.handler()
		}
	}
	k.ptcur = p

	t := k.head
	for i := 0; i < k.count; i++ {
		if t.asleep && t.wake == k.now {
			t.asleep = false
			t.wake = 0
		}
		t = t.next
	}

	if k.launched {
		k.port.PendSwitch()
	}
}

// contextSwitch is the deferred switch handler. It runs with interrupts
// enabled on the outgoing thread's context.
func (k *Kernel) contextSwitch() {
	cs := k.enter()
	prev := k.current
	if prev == nil {
		cs.exit()
		return
	}
	next := k.policy.Next(prev, k.count)
	if next == nil {
		// Nothing can run: retry after the next interrupt.
		k.port.PendSwitch()
		cs.exit()
		k.port.WaitForInterrupt()
		return
	}
	k.current = next
	cs.exit()

	if next != prev {
		k.port.SwitchContext(prev.frame, next.frame)
	}
}
