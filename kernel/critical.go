package kernel

// CriticalSection is an open region with interrupts disabled. It carries the
// interrupt state observed on entry; Exit restores exactly that state, so
// nested sections never re-enable interrupts early.
type CriticalSection struct {
	port  Port
	state IRQState
}

// EnterCritical disables interrupts. Every call must be paired with exactly
// one Exit on every return path; prefer Critical, or defer Exit.
func (k *Kernel) EnterCritical() CriticalSection {
	return k.enter()
}

// Exit restores the interrupt state saved by EnterCritical.
func (cs CriticalSection) Exit() {
	cs.exit()
}

// Critical runs fn with interrupts disabled.
func (k *Kernel) Critical(fn func()) {
	cs := k.enter()
	defer cs.exit()
	fn()
}

func (k *Kernel) enter() CriticalSection {
	return CriticalSection{port: k.port, state: k.port.DisableInterrupts()}
}

func (cs CriticalSection) exit() {
	cs.port.RestoreInterrupts(cs.state)
}
