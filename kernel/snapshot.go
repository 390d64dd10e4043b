package kernel

// ThreadInfo is a copy of a thread's scheduling state.
type ThreadInfo struct {
	ID              ThreadID
	Name            string
	Priority        uint8
	BasePriority    uint8
	Age             uint32
	StarvationLimit uint32
	Asleep          bool
	WakeTick        uint64
	Blocked         bool
	Current         bool
	Idle            bool
}

// Threads returns the alive threads in list order, starting at the head
// (best priority).
func (k *Kernel) Threads() []ThreadInfo {
	cs := k.enter()
	defer cs.exit()

	out := make([]ThreadInfo, 0, k.count)
	t := k.head
	for i := 0; i < k.count; i++ {
		out = append(out, ThreadInfo{
			ID:              t.id,
			Name:            t.Name(),
			Priority:        t.Priority,
			BasePriority:    t.base,
			Age:             t.Age,
			StarvationLimit: t.limit,
			Asleep:          t.asleep,
			WakeTick:        t.wake,
			Blocked:         t.blocked != nil,
			Current:         t == k.current,
			Idle:            t == k.idle,
		})
		t = t.next
	}
	return out
}

// Thread returns the state of one alive thread.
func (k *Kernel) Thread(id ThreadID) (ThreadInfo, bool) {
	for _, info := range k.Threads() {
		if info.ID == id {
			return info, true
		}
	}
	return ThreadInfo{}, false
}

// FIFOInfo is a copy of a FIFO's counters.
type FIFOInfo struct {
	Index int
	Len   int
	Cap   int
	Lost  uint32
}

// FIFOStats returns the counters of every FIFO.
func (k *Kernel) FIFOStats() []FIFOInfo {
	cs := k.enter()
	defer cs.exit()

	out := make([]FIFOInfo, len(k.fifos))
	for i := range k.fifos {
		f := &k.fifos[i]
		out[i] = FIFOInfo{Index: i, Len: f.n, Cap: len(f.buf), Lost: f.lost}
	}
	return out
}

// ThreadCount returns the number of alive threads.
func (k *Kernel) ThreadCount() int {
	cs := k.enter()
	defer cs.exit()
	return k.count
}
