package kernel

import "fmt"

const (
	// MaxNameLength bounds thread names; longer names are truncated.
	MaxNameLength = 16

	defaultMaxThreads   = 26
	defaultMaxPeriodic  = 4
	defaultFIFOCount    = 6
	defaultFIFOCapacity = 100
)

// Logger writes newline-delimited log lines. hal.Logger satisfies it.
type Logger interface {
	WriteLineString(s string)
}

// Config sizes the kernel's fixed pools. Zero values select the defaults.
type Config struct {
	MaxThreads   int
	MaxPeriodic  int
	FIFOCount    int
	FIFOCapacity int

	// Policy picks the next thread; nil selects PriorityAging.
	Policy Policy

	// Logger receives lifecycle events (optional).
	Logger Logger
}

// Kernel holds all scheduler state: thread and periodic pools, FIFOs and the
// system tick. Independent instances do not share anything.
type Kernel struct {
	port   Port
	policy Policy
	log    Logger

	tcbs    []TCB
	head    *TCB
	current *TCB
	idle    *TCB
	count   int
	idGen   uint16

	ptcbs  []ptcb
	nptcbs int
	ptcur  *ptcb

	fifos []FIFO

	now      uint64
	launched bool
}

// New creates a kernel on top of port and attaches its interrupt handlers.
func New(port Port, cfg Config) *Kernel {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = defaultMaxThreads
	}
	if cfg.MaxThreads > 0xFFFF {
		cfg.MaxThreads = 0xFFFF
	}
	if cfg.MaxPeriodic <= 0 {
		cfg.MaxPeriodic = defaultMaxPeriodic
	}
	if cfg.FIFOCount <= 0 {
		cfg.FIFOCount = defaultFIFOCount
	}
	if cfg.FIFOCapacity <= 0 {
		cfg.FIFOCapacity = defaultFIFOCapacity
	}
	if cfg.Policy == nil {
		cfg.Policy = PriorityAging{}
	}

	k := &Kernel{
		port:   port,
		policy: cfg.Policy,
		log:    cfg.Logger,
		tcbs:   make([]TCB, cfg.MaxThreads),
		ptcbs:  make([]ptcb, cfg.MaxPeriodic),
		fifos:  make([]FIFO, cfg.FIFOCount),
	}
	for i := range k.tcbs {
		k.tcbs[i].slot = uint16(i)
	}
	for i := range k.fifos {
		k.fifos[i].k = k
		k.fifos[i].buf = make([]uint32, cfg.FIFOCapacity)
		k.fifos[i].reset()
	}
	port.Attach(Handlers{Tick: k.tick, Switch: k.contextSwitch})
	return k
}

// Launch dispatches the highest priority thread and runs the system. It only
// returns when the port stops, or with ErrNoThreadsScheduled when no thread
// was added.
func (k *Kernel) Launch() error {
	cs := k.enter()
	if k.count == 0 {
		cs.exit()
		return ErrNoThreadsScheduled
	}
	k.current = k.head
	k.launched = true
	first := k.current.frame
	name := k.current.Name()
	n := k.count
	cs.exit()

	k.logf("kernel: launch: %d threads, first %q", n, name)
	return k.port.Start(first)
}

// Now returns the system tick.
func (k *Kernel) Now() uint64 {
	cs := k.enter()
	defer cs.exit()
	return k.now
}

// Policy returns the scheduling policy in use.
func (k *Kernel) Policy() Policy { return k.policy }

func (k *Kernel) logf(format string, args ...any) {
	if k.log == nil {
		return
	}
	k.log.WriteLineString(fmt.Sprintf(format, args...))
}
