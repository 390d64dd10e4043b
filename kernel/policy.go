package kernel

import "fmt"

// Policy chooses the thread to dispatch.
//
// Next is called with interrupts disabled. cur is the thread that was running
// (it may have just been killed, in which case its links still lead into the
// list) and alive is the number of threads in the circular list. Next returns
// nil when no thread can run.
type Policy interface {
	Next(cur *TCB, alive int) *TCB
	String() string
}

// ParsePolicy returns the built-in policy with the given name. The empty
// name selects PriorityAging.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", PriorityAging{}.String():
		return PriorityAging{}, nil
	case RoundRobin{}.String():
		return RoundRobin{}, nil
	default:
		return nil, fmt.Errorf("kernel: unknown policy %q", name)
	}
}

// RoundRobin dispatches the next runnable thread in list order, ignoring
// priorities. It provides no starvation avoidance.
type RoundRobin struct{}

func (RoundRobin) String() string { return "round-robin" }

func (RoundRobin) Next(cur *TCB, alive int) *TCB {
	if cur == nil {
		return nil
	}
	t := cur
	for i := 0; i < alive; i++ {
		t = t.next
		if t.Runnable() {
			return t
		}
	}
	return nil
}

// PriorityAging dispatches the runnable thread with the best priority,
// rotating within a priority band. Runnable threads that lose a pass age;
// reaching their starvation limit boosts them to DontStarvePriority, and a
// boosted thread is dispatched ahead of everything else on the next pass,
// after which it returns to its base priority.
type PriorityAging struct{}

func (PriorityAging) String() string { return "priority-aging" }

func (PriorityAging) Next(cur *TCB, alive int) *TCB {
	if cur == nil {
		return nil
	}

	// The scan starts after cur and ends with cur, so ties go to the thread
	// that follows cur.
	var best *TCB
	t := cur
	for i := 0; i < alive; i++ {
		t = t.next
		if !t.Runnable() {
			continue
		}
		if t.Priority < t.base {
			best = t
			break
		}
		if best == nil || t.Priority < best.Priority {
			best = t
		}
	}
	if best == nil {
		return nil
	}

	if best.Priority < best.base {
		best.Priority = best.base
	}
	best.Age = 0

	t = best
	for i := 1; i < alive; i++ {
		t = t.next
		if t.Runnable() {
			age(t)
		}
	}
	return best
}

func age(t *TCB) {
	if t.limit == 0 {
		return
	}
	t.Age++
	if t.Age < t.limit {
		return
	}
	t.Age = 0
	if DontStarvePriority < t.Priority {
		t.Priority = DontStarvePriority
	}
}
