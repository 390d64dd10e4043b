package kernel_test

import (
	"testing"

	"sparkrt/kernel"
)

func TestStarvingThreadBoostedAfterLimit(t *testing.T) {
	const limit = 3
	k, p := newKernel(kernel.Config{})
	hog := mustAdd(t, k, 1, 0, "hog")
	victim := mustAdd(t, k, 50, limit, "victim")
	if _, err := k.AddIdleThread("idle"); err != nil {
		t.Fatalf("AddIdleThread() error = %v", err)
	}
	mustLaunch(t, k)

	for i := 1; i < limit; i++ {
		p.Tick()
		if got := k.ThreadID(); got != hog {
			t.Fatalf("tick %d: ThreadID() = %s, want %s", i, got, hog)
		}
		if got := info(t, k, victim).Age; got != uint32(i) {
			t.Fatalf("tick %d: Age = %d, want %d", i, got, i)
		}
	}

	p.Tick()
	v := info(t, k, victim)
	if v.Priority != kernel.DontStarvePriority || v.Age != 0 {
		t.Fatalf("after %d passes Priority, Age = %d, %d, want %d, 0", limit, v.Priority, v.Age, kernel.DontStarvePriority)
	}
	if got := k.ThreadID(); got != hog {
		t.Fatalf("ThreadID() = %s, want %s", got, hog)
	}

	p.Tick()
	if got := k.ThreadID(); got != victim {
		t.Fatalf("boosted thread not dispatched: ThreadID() = %s, want %s", got, victim)
	}
	if got := info(t, k, victim).Priority; got != 50 {
		t.Fatalf("Priority after dispatch = %d, want 50", got)
	}

	p.Tick()
	if got := k.ThreadID(); got != hog {
		t.Fatalf("ThreadID() = %s, want %s", got, hog)
	}
}

func TestBoostNeverLowersPriority(t *testing.T) {
	k, p := newKernel(kernel.Config{})
	a := mustAdd(t, k, 1, 0, "a")
	b := mustAdd(t, k, 5, 1, "b")
	mustLaunch(t, k)

	p.Run(4)
	if got := info(t, k, b).Priority; got != 5 {
		t.Fatalf("Priority = %d, want 5", got)
	}
	if got := k.ThreadID(); got != a {
		t.Fatalf("ThreadID() = %s, want %s", got, a)
	}
}

func TestRoundRobinWithinPriorityBand(t *testing.T) {
	k, p := newKernel(kernel.Config{})
	a := mustAdd(t, k, 2, 0, "a")
	b := mustAdd(t, k, 2, 0, "b")
	c := mustAdd(t, k, 2, 0, "c")
	if _, err := k.AddIdleThread("idle"); err != nil {
		t.Fatalf("AddIdleThread() error = %v", err)
	}
	mustLaunch(t, k)

	if got := k.ThreadID(); got != c {
		t.Fatalf("ThreadID() = %s, want %s", got, c)
	}
	want := []kernel.ThreadID{b, a, c, b, a, c}
	for i, w := range want {
		p.Tick()
		if got := k.ThreadID(); got != w {
			t.Fatalf("tick %d: ThreadID() = %s, want %s", i+1, got, w)
		}
	}
}

func TestIdleRunsWhenNothingElseCan(t *testing.T) {
	k, p := newKernel(kernel.Config{})
	mustAdd(t, k, 1, 0, "a")
	mustAdd(t, k, 2, 0, "b")
	idle, err := k.AddIdleThread("idle")
	if err != nil {
		t.Fatalf("AddIdleThread() error = %v", err)
	}
	mustLaunch(t, k)

	k.Sleep(100)
	k.NewSemaphore(0).Wait()
	for i := 0; i < 10; i++ {
		p.Tick()
		if got := k.ThreadID(); got != idle {
			t.Fatalf("tick %d: ThreadID() = %s, want idle %s", i+1, got, idle)
		}
	}

	k.Sleep(5)
	if info(t, k, idle).Asleep {
		t.Fatal("idle thread went to sleep")
	}
}

func TestNoRunnableThreadWaitsForInterrupt(t *testing.T) {
	k, p := newKernel(kernel.Config{})
	a := mustAdd(t, k, 1, 0, "a")
	mustLaunch(t, k)

	k.Sleep(3)
	if !p.Halted() {
		t.Fatal("port not halted with every thread asleep")
	}
	p.Run(2)
	if !p.Halted() {
		t.Fatal("port resumed before the wake tick")
	}
	p.Tick()
	if p.Halted() {
		t.Fatal("port still halted after the wake tick")
	}
	if info(t, k, a).Asleep {
		t.Fatal("thread still asleep")
	}
	if got := k.ThreadID(); got != a {
		t.Fatalf("ThreadID() = %s, want %s", got, a)
	}
}

func TestRoundRobinPolicyIgnoresPriority(t *testing.T) {
	k, p := newKernel(kernel.Config{Policy: kernel.RoundRobin{}})
	a := mustAdd(t, k, 1, 0, "a")
	b := mustAdd(t, k, 9, 0, "b")
	c := mustAdd(t, k, 5, 0, "c")
	mustLaunch(t, k)

	if got := k.Policy().String(); got != "round-robin" {
		t.Fatalf("Policy() = %q, want %q", got, "round-robin")
	}
	want := []kernel.ThreadID{c, b, a, c}
	for i, w := range want {
		p.Tick()
		if got := k.ThreadID(); got != w {
			t.Fatalf("tick %d: ThreadID() = %s, want %s", i+1, got, w)
		}
	}

	// c is current; putting it to sleep skips it.
	k.Sleep(10)
	if got := k.ThreadID(); got != b {
		t.Fatalf("ThreadID() after Sleep = %s, want %s", got, b)
	}
	p.Tick()
	if got := k.ThreadID(); got != a {
		t.Fatalf("ThreadID() = %s, want %s", got, a)
	}
	p.Tick()
	if got := k.ThreadID(); got != b {
		t.Fatalf("ThreadID() = %s, want %s", got, b)
	}
}

func TestDefaultPolicy(t *testing.T) {
	k, _ := newKernel(kernel.Config{})
	if got := k.Policy().String(); got != "priority-aging" {
		t.Fatalf("Policy() = %q, want %q", got, "priority-aging")
	}
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]string{
		"":               "priority-aging",
		"priority-aging": "priority-aging",
		"round-robin":    "round-robin",
	} {
		p, err := kernel.ParsePolicy(name)
		if err != nil {
			t.Fatalf("ParsePolicy(%q) error = %v", name, err)
		}
		if p.String() != want {
			t.Fatalf("ParsePolicy(%q) = %s, want %s", name, p, want)
		}
	}
	if _, err := kernel.ParsePolicy("lottery"); err == nil {
		t.Fatal("ParsePolicy(lottery) error = nil")
	}
}
