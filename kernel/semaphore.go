package kernel

// Semaphore is a counting semaphore. A negative value's magnitude is the
// number of threads blocked on it. Blocked threads reference the semaphore;
// the semaphore keeps no wait queue.
type Semaphore struct {
	k     *Kernel
	value int32
}

// NewSemaphore returns a semaphore bound to k with the given initial value.
func (k *Kernel) NewSemaphore(value int32) *Semaphore {
	return &Semaphore{k: k, value: value}
}

// Init resets the counter. No thread may be blocked on s or using it
// concurrently.
func (s *Semaphore) Init(value int32) {
	cs := s.k.enter()
	defer cs.exit()
	s.value = value
}

// Value returns the current counter.
func (s *Semaphore) Value() int32 {
	cs := s.k.enter()
	defer cs.exit()
	return s.value
}

// Wait decrements the semaphore and blocks the calling thread while the
// result is negative. There is no timeout.
func (s *Semaphore) Wait() {
	k := s.k
	cs := k.enter()
	defer cs.exit()

	s.value--
	if s.value < 0 && k.current != nil {
		k.current.blocked = s
		k.port.PendSwitch()
	}
}

// Signal increments the semaphore and, if threads are waiting, unblocks the
// first one found scanning the thread list from the thread after the caller.
// Waiters are therefore not released in arrival order.
func (s *Semaphore) Signal() {
	k := s.k
	cs := k.enter()
	defer cs.exit()

	s.value++
	if s.value > 0 {
		return
	}

	t := k.head
	if k.current != nil {
		t = k.current.next
	}
	for i := 0; i < k.count; i++ {
		if t.blocked == s {
			t.blocked = nil
			return
		}
		t = t.next
	}
}
