package kernel

import "fmt"

const (
	// IdlePriority is the lowest priority; the idle thread runs at it.
	IdlePriority uint8 = 255
	// DontStarvePriority is the level a starving thread is boosted to.
	DontStarvePriority uint8 = 10
	// DefaultStarvationLimit is the starvation limit used by AddThreadDefault.
	DefaultStarvationLimit uint32 = 100
)

// ThreadID identifies a thread: a creation counter in the high half and the
// pool slot in the low half. A reused slot always gets a new ID.
type ThreadID uint32

// Slot returns the pool slot the thread occupies.
func (id ThreadID) Slot() int { return int(id & 0xFFFF) }

// Generation returns the creation counter part of the ID.
func (id ThreadID) Generation() uint16 { return uint16(id >> 16) }

func (id ThreadID) String() string {
	return fmt.Sprintf("%d.%d", id.Generation(), id.Slot())
}

// TCB is a thread control block. Policies read and adjust Priority and Age;
// everything else is owned by the kernel.
type TCB struct {
	frame Frame
	next  *TCB
	prev  *TCB

	blocked *Semaphore
	asleep  bool
	wake    uint64

	Priority uint8
	Age      uint32
	base     uint8
	limit    uint32

	alive   bool
	name    [MaxNameLength]byte
	nameLen uint8
	id      ThreadID
	slot    uint16
}

// Next returns the following thread in the circular list.
func (t *TCB) Next() *TCB { return t.next }

// Prev returns the preceding thread in the circular list.
func (t *TCB) Prev() *TCB { return t.prev }

// Runnable reports whether the thread is alive, awake and not blocked.
func (t *TCB) Runnable() bool { return t.alive && !t.asleep && t.blocked == nil }

// BasePriority returns the priority the thread was created with.
func (t *TCB) BasePriority() uint8 { return t.base }

// StarvationLimit returns how many passes the thread may be skipped before
// it is boosted. Zero disables boosting.
func (t *TCB) StarvationLimit() uint32 { return t.limit }

// ID returns the thread ID.
func (t *TCB) ID() ThreadID { return t.id }

// Name returns the (possibly truncated) thread name.
func (t *TCB) Name() string { return string(t.name[:t.nameLen]) }

// AddThread registers a thread that starts executing entry when first
// dispatched. If entry returns, the thread kills itself.
func (k *Kernel) AddThread(entry func(), priority uint8, starvationLimit uint32, name string) (ThreadID, error) {
	if entry == nil {
		panic("kernel: nil thread entry")
	}
	cs := k.enter()
	defer cs.exit()

	t, st := k.addThread(entry, priority, starvationLimit, name)
	if st != NoError {
		k.logf("kernel: add thread %q: %s", name, st)
		return 0, st
	}
	k.logf("kernel: add thread %q id=%s prio=%d", t.Name(), t.id, priority)
	return t.id, nil
}

// AddThreadDefault is AddThread with DefaultStarvationLimit.
func (k *Kernel) AddThreadDefault(entry func(), priority uint8, name string) (ThreadID, error) {
	return k.AddThread(entry, priority, DefaultStarvationLimit, name)
}

// AddIdleThread registers the kernel's idle loop at IdlePriority. The idle
// thread never sleeps, never blocks, is never boosted and survives
// KillAllOthers. Only one may exist.
func (k *Kernel) AddIdleThread(name string) (ThreadID, error) {
	cs := k.enter()
	defer cs.exit()

	if k.idle != nil {
		return 0, ErrThreadsIncorrectlyAlive
	}
	t, st := k.addThread(k.idleLoop, IdlePriority, 0, name)
	if st != NoError {
		return 0, st
	}
	k.idle = t
	k.logf("kernel: add idle thread %q id=%s", t.Name(), t.id)
	return t.id, nil
}

func (k *Kernel) idleLoop() {
	for {
		k.port.WaitForInterrupt()
		k.Yield()
	}
}

func (k *Kernel) addThread(entry func(), priority uint8, limit uint32, name string) (*TCB, Status) {
	t := k.freeSlot()
	if t == nil {
		return nil, ErrThreadLimitReached
	}

	k.idGen++
	if k.idGen == 0 {
		k.idGen = 1
	}

	slot := t.slot
	*t = TCB{
		Priority: priority,
		base:     priority,
		limit:    limit,
		alive:    true,
		slot:     slot,
		id:       ThreadID(uint32(k.idGen)<<16 | uint32(slot)),
	}
	t.nameLen = uint8(copy(t.name[:], name))
	t.frame = k.port.BuildInitialFrame(k.threadMain(entry))

	k.insert(t)
	k.count++
	return t, NoError
}

func (k *Kernel) threadMain(entry func()) func() {
	return func() {
		entry()
		if err := k.KillSelf(); err != nil {
			panic(fmt.Sprintf("kernel: thread %s returned: %v", k.ThreadID(), err))
		}
	}
}

func (k *Kernel) freeSlot() *TCB {
	for i := range k.tcbs {
		if !k.tcbs[i].alive {
			return &k.tcbs[i]
		}
	}
	return nil
}

// insert links t in front of the first thread whose base priority is equal
// or lower (numerically greater), keeping head at the best priority.
func (k *Kernel) insert(t *TCB) {
	if k.head == nil {
		t.next, t.prev = t, t
		k.head = t
		return
	}

	at := k.head
	for i := 0; i < k.count; i++ {
		if at.base >= t.base {
			break
		}
		at = at.next
	}

	t.next = at
	t.prev = at.prev
	at.prev.next = t
	at.prev = t

	if t.base <= k.head.base {
		k.head = t
	}
}

func (k *Kernel) unlink(t *TCB) {
	if k.head == t {
		k.head = t.next
	}
	t.prev.next = t.next
	t.next.prev = t.prev

	// A dead current thread keeps its links until the pending switch; keep
	// them pointing into the live list.
	if cur := k.current; cur != nil && cur != t && !cur.alive && cur.next == t {
		cur.next = t.next
	}
}

func (k *Kernel) lookup(id ThreadID) *TCB {
	slot := id.Slot()
	if id == 0 || slot >= len(k.tcbs) {
		return nil
	}
	t := &k.tcbs[slot]
	if !t.alive || t.id != id {
		return nil
	}
	return t
}

// KillThread terminates the thread with the given ID. Resources it held are
// abandoned; a semaphore it was blocked on gets its unit back.
func (k *Kernel) KillThread(id ThreadID) error {
	cs := k.enter()
	defer cs.exit()
	return k.kill(id).result()
}

func (k *Kernel) kill(id ThreadID) Status {
	t := k.lookup(id)
	if t == nil {
		return ErrThreadDoesNotExist
	}
	if k.count == 1 {
		return ErrCannotKillLastThread
	}

	if t.blocked != nil {
		t.blocked.value++
		t.blocked = nil
	}
	t.asleep = false
	t.wake = 0
	t.alive = false
	t.Priority = IdlePriority
	t.Age = 0

	k.unlink(t)
	k.count--
	if t == k.idle {
		k.idle = nil
	}
	k.port.ReleaseFrame(t.frame)
	k.logf("kernel: kill thread %q id=%s", t.Name(), t.id)

	if t == k.current {
		k.port.PendSwitch()
	}
	return NoError
}

// KillSelf terminates the calling thread. On success it does not return to
// the caller once the pending switch is taken.
func (k *Kernel) KillSelf() error {
	cs := k.enter()
	defer cs.exit()

	if k.current == nil {
		return ErrThreadDoesNotExist
	}
	return k.kill(k.current.id).result()
}

// KillAllOthers terminates every thread except the caller and the idle thread.
func (k *Kernel) KillAllOthers() {
	cs := k.enter()
	defer cs.exit()

	for i := range k.tcbs {
		t := &k.tcbs[i]
		if !t.alive || t == k.current || t == k.idle {
			continue
		}
		k.kill(t.id)
	}
}

// ThreadID returns the ID of the running thread, or 0 before Launch.
func (k *Kernel) ThreadID() ThreadID {
	cs := k.enter()
	defer cs.exit()

	if k.current == nil {
		return 0
	}
	return k.current.id
}

// Sleep suspends the calling thread for the given number of ticks.
// Sleep(0) only yields.
func (k *Kernel) Sleep(ticks uint32) {
	cs := k.enter()
	defer cs.exit()

	t := k.current
	if t == nil || t == k.idle {
		return
	}
	if ticks > 0 {
		t.asleep = true
		t.wake = k.now + uint64(ticks)
	}
	k.port.PendSwitch()
}

// Yield gives the scheduler a chance to run another thread.
func (k *Kernel) Yield() {
	cs := k.enter()
	defer cs.exit()
	k.port.PendSwitch()
}
