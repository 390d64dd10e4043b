package hal

import "time"

const tickDuration = time.Millisecond

// tickClock converts wall-clock time into a 1ms tick stream. Ticks that the
// consumer does not pick up in time are dropped, like a missed SysTick.
type tickClock struct {
	ch  chan uint64
	seq uint64

	last time.Time
	acc  time.Duration
}

func newTickClock() *tickClock {
	return &tickClock{ch: make(chan uint64, 1024)}
}

func (t *tickClock) Ticks() <-chan uint64 { return t.ch }

// step emits the ticks elapsed since the previous call; the first call
// emits n.
func (t *tickClock) step(n uint64) {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / tickDuration)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % tickDuration
	t.stepN(ticks)
}

func (t *tickClock) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}

// run emits one tick per tickDuration forever. It drives targets that have
// no window or headless loop calling step.
func (t *tickClock) run() {
	ticker := time.NewTicker(tickDuration)
	defer ticker.Stop()
	for range ticker.C {
		t.stepN(1)
	}
}
