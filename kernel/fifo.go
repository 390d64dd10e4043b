package kernel

// FIFO is a fixed-capacity ring of 32-bit words shared between threads.
//
// Readers block while the FIFO is empty. Writers never block on space: when
// the ring is full the oldest unread word is dropped and counted as lost.
type FIFO struct {
	k *Kernel

	buf  []uint32
	head int
	tail int
	n    int
	lost uint32

	available Semaphore
	mutex     Semaphore
}

func (f *FIFO) reset() {
	f.head = 0
	f.tail = 0
	f.n = 0
	f.lost = 0
	f.available = Semaphore{k: f.k, value: 0}
	f.mutex = Semaphore{k: f.k, value: 1}
}

// FIFO returns channel i, or nil if it does not exist.
func (k *Kernel) FIFO(i int) *FIFO {
	if i < 0 || i >= len(k.fifos) {
		return nil
	}
	return &k.fifos[i]
}

// InitFIFO empties channel i and resets its lost counter.
func (k *Kernel) InitFIFO(i int) error {
	f := k.FIFO(i)
	if f == nil {
		return ErrFIFODoesNotExist
	}
	f.Init()
	return nil
}

// ReadFIFO reads one word from channel i, blocking while it is empty.
func (k *Kernel) ReadFIFO(i int) (uint32, error) {
	f := k.FIFO(i)
	if f == nil {
		return 0, ErrFIFODoesNotExist
	}
	return f.Read(), nil
}

// WriteFIFO writes one word to channel i.
func (k *Kernel) WriteFIFO(i int, v uint32) error {
	f := k.FIFO(i)
	if f == nil {
		return ErrFIFODoesNotExist
	}
	f.Write(v)
	return nil
}

// Init empties the FIFO. No thread may be using it.
func (f *FIFO) Init() {
	cs := f.k.enter()
	defer cs.exit()
	f.reset()
}

// Read pops the oldest word, blocking while the FIFO is empty.
func (f *FIFO) Read() uint32 {
	f.available.Wait()
	f.mutex.Wait()

	v := f.buf[f.head]
	f.head++
	if f.head == len(f.buf) {
		f.head = 0
	}
	f.n--

	f.mutex.Signal()
	return v
}

// Write appends v. If the FIFO already holds Cap words, the oldest is
// dropped first; the count of readable words is then unchanged, so readers
// are not signalled.
func (f *FIFO) Write(v uint32) {
	f.mutex.Wait()

	overflow := f.n == len(f.buf)
	if overflow {
		f.head++
		if f.head == len(f.buf) {
			f.head = 0
		}
		f.n--
		f.lost++
	}

	f.buf[f.tail] = v
	f.tail++
	if f.tail == len(f.buf) {
		f.tail = 0
	}
	f.n++

	f.mutex.Signal()
	if !overflow {
		f.available.Signal()
	}
}

// Lost returns how many words were dropped because the FIFO was full.
func (f *FIFO) Lost() uint32 {
	cs := f.k.enter()
	defer cs.exit()
	return f.lost
}

// Len returns the number of words stored.
func (f *FIFO) Len() int {
	cs := f.k.enter()
	defer cs.exit()
	return f.n
}

// Cap returns the capacity in words.
func (f *FIFO) Cap() int { return len(f.buf) }
