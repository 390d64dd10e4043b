package sim_test

import (
	"errors"
	"testing"

	"sparkrt/kernel"
	"sparkrt/port/sim"
)

func TestSwitchesRecorded(t *testing.T) {
	p := sim.New()
	k := kernel.New(p, kernel.Config{})
	for _, name := range []string{"a", "b"} {
		if _, err := k.AddThreadDefault(func() {}, 1, name); err != nil {
			t.Fatalf("AddThread(%s) error = %v", name, err)
		}
	}
	if err := k.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	first := p.Current()
	if first == nil {
		t.Fatal("Current() = nil after Launch")
	}
	if got := len(p.Switches()); got != 0 {
		t.Fatalf("len(Switches()) = %d before the first tick, want 0", got)
	}

	p.Run(2)
	sw := p.Switches()
	if len(sw) != 2 {
		t.Fatalf("len(Switches()) = %d, want 2", len(sw))
	}
	if sw[0].Tick != 1 || sw[0].From != first || sw[0].To == first {
		t.Fatalf("Switches()[0] = %+v", sw[0])
	}
	if sw[1].Tick != 2 || sw[1].To != first {
		t.Fatalf("Switches()[1] = %+v", sw[1])
	}
}

func TestKilledThreadFrameReleased(t *testing.T) {
	p := sim.New()
	k := kernel.New(p, kernel.Config{})
	for _, name := range []string{"a", "b"} {
		if _, err := k.AddThreadDefault(func() {}, 1, name); err != nil {
			t.Fatalf("AddThread(%s) error = %v", name, err)
		}
	}
	if err := k.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	f := p.Current()
	if err := k.KillSelf(); err != nil {
		t.Fatalf("KillSelf() error = %v", err)
	}
	if !f.Released {
		t.Fatal("frame of killed thread not released")
	}
	if p.Current() == f {
		t.Fatal("killed thread still current")
	}
}

func TestHaltedUntilTick(t *testing.T) {
	p := sim.New()
	k := kernel.New(p, kernel.Config{})
	if _, err := k.AddThreadDefault(func() {}, 1, "a"); err != nil {
		t.Fatalf("AddThread() error = %v", err)
	}
	if err := k.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if p.Halted() {
		t.Fatal("Halted() = true with a runnable thread")
	}
	k.Sleep(1)
	if !p.Halted() {
		t.Fatal("Halted() = false with every thread asleep")
	}
	p.Tick()
	if p.Halted() {
		t.Fatal("Halted() = true after the wake tick")
	}
}

func TestRaiseServicesByPriority(t *testing.T) {
	p := sim.New()
	p.Attach(kernel.Handlers{})

	var order []kernel.IRQ
	for _, l := range []struct {
		irq  kernel.IRQ
		prio uint8
	}{{1, 5}, {2, 0}, {3, 3}} {
		irq := l.irq
		if err := p.EnableIRQ(irq, l.prio, func() { order = append(order, irq) }); err != nil {
			t.Fatalf("EnableIRQ(%d) error = %v", irq, err)
		}
	}

	s := p.DisableInterrupts()
	p.Raise(1)
	p.Raise(2)
	p.Raise(3)
	p.Raise(4) // not enabled
	if len(order) != 0 {
		t.Fatalf("handlers ran with interrupts disabled: %v", order)
	}
	p.RestoreInterrupts(s)

	want := []kernel.IRQ{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	if err := p.EnableIRQ(kernel.IRQLast+1, 0, func() {}); !errors.Is(err, kernel.ErrIRQInvalid) {
		t.Fatalf("EnableIRQ() error = %v, want %v", err, kernel.ErrIRQInvalid)
	}
}
