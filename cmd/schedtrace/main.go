//go:build !tinygo

// Command schedtrace replays a thread set on the simulated port and prints
// which thread the scheduler dispatches at every tick.
//
//	schedtrace -ticks 12 -thread hog:1:0 -thread worker:50:3 -thread poller:5:0:4
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sparkrt/kernel"
	"sparkrt/monitor"
	"sparkrt/port/sim"

	log "github.com/sirupsen/logrus"
)

const defaultTicks = 20

type threadSpec struct {
	name  string
	prio  uint8
	limit uint32
	sleep uint32
}

// parseThread parses name:prio[:limit[:sleep]]. A thread with a non-zero
// sleep goes to sleep for that many ticks each time it is dispatched.
func parseThread(s string) (threadSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 || parts[0] == "" {
		return threadSpec{}, fmt.Errorf("thread %q: want name:prio[:limit[:sleep]]", s)
	}
	spec := threadSpec{name: parts[0], limit: kernel.DefaultStarvationLimit}
	prio, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return threadSpec{}, fmt.Errorf("thread %q: priority: %w", s, err)
	}
	spec.prio = uint8(prio)
	if len(parts) > 2 {
		v, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return threadSpec{}, fmt.Errorf("thread %q: starvation limit: %w", s, err)
		}
		spec.limit = uint32(v)
	}
	if len(parts) > 3 {
		v, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return threadSpec{}, fmt.Errorf("thread %q: sleep: %w", s, err)
		}
		spec.sleep = uint32(v)
	}
	return spec, nil
}

type threadFlags []threadSpec

func (f *threadFlags) String() string {
	names := make([]string, len(*f))
	for i, t := range *f {
		names[i] = t.name
	}
	return strings.Join(names, ",")
}

func (f *threadFlags) Set(s string) error {
	spec, err := parseThread(s)
	if err != nil {
		return err
	}
	*f = append(*f, spec)
	return nil
}

type options struct {
	policy  string
	ticks   int
	idle    bool
	table   bool
	verbose bool
	threads []threadSpec
}

// kernelLog routes kernel lifecycle lines to logrus.
type kernelLog struct{ *log.Entry }

func (l kernelLog) WriteLineString(s string) { l.Info(s) }

func newLogger(w io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return l
}

func main() {
	var opts options
	var threads threadFlags
	flag.StringVar(&opts.policy, "policy", "", "Scheduling policy (priority-aging or round-robin).")
	flag.IntVar(&opts.ticks, "ticks", defaultTicks, "Number of ticks to simulate.")
	flag.BoolVar(&opts.idle, "idle", true, "Add an idle thread.")
	flag.BoolVar(&opts.table, "table", false, "Print the thread table after the trace.")
	flag.BoolVar(&opts.verbose, "v", false, "Print kernel log lines.")
	flag.Var(&threads, "thread", "Thread as name:prio[:limit[:sleep]] (repeatable).")
	flag.Parse()

	if len(threads) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one -thread is required")
		os.Exit(2)
	}
	if opts.ticks < 0 {
		fmt.Fprintln(os.Stderr, "error: -ticks must not be negative")
		os.Exit(2)
	}
	opts.threads = threads

	if err := run(os.Stdout, opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, opts options) error {
	policy, err := kernel.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}

	cfg := kernel.Config{Policy: policy, MaxThreads: len(opts.threads) + 1}
	var trace *log.Logger
	if opts.verbose {
		trace = newLogger(w)
		cfg.Logger = kernelLog{trace.WithField("src", "kernel")}
	}
	p := sim.New()
	k := kernel.New(p, cfg)

	sleeps := make(map[kernel.ThreadID]uint32)
	for _, t := range opts.threads {
		id, err := k.AddThread(func() {}, t.prio, t.limit, t.name)
		if err != nil {
			return fmt.Errorf("add thread %s: %w", t.name, err)
		}
		if t.sleep > 0 {
			sleeps[id] = t.sleep
		}
	}
	if opts.idle {
		if _, err := k.AddIdleThread("idle"); err != nil {
			return fmt.Errorf("add idle thread: %w", err)
		}
	}
	if err := k.Launch(); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	fmt.Fprintf(w, "policy %s, %d threads\n", policy, k.ThreadCount())
	boosted := make(map[kernel.ThreadID]bool)
	if err := traceTick(w, k, p, sleeps, boosted, trace); err != nil {
		return err
	}
	for i := 0; i < opts.ticks; i++ {
		p.Tick()
		if err := traceTick(w, k, p, sleeps, boosted, trace); err != nil {
			return err
		}
	}

	if opts.table {
		fmt.Fprintln(w)
		return monitor.WriteTable(w, monitor.Take(k))
	}
	return nil
}

// traceTick prints one line for the current tick. Dispatched threads that
// sleep do so immediately, so a line may list several threads. With trace
// set, every new starvation boost is logged once.
func traceTick(w io.Writer, k *kernel.Kernel, p *sim.Port, sleeps map[kernel.ThreadID]uint32, boosted map[kernel.ThreadID]bool, trace *log.Logger) error {
	var ran []string
	for n := 0; n <= len(sleeps); n++ {
		if p.Halted() {
			ran = append(ran, "(wfi)")
			break
		}
		ti, ok := current(k)
		if !ok {
			break
		}
		ran = append(ran, ti.Name)
		d := sleeps[ti.ID]
		if d == 0 {
			break
		}
		k.Sleep(d)
	}

	var names []string
	for _, ti := range k.Threads() {
		if ti.Priority >= ti.BasePriority {
			delete(boosted, ti.ID)
			continue
		}
		names = append(names, ti.Name)
		if trace != nil && !boosted[ti.ID] {
			trace.WithFields(log.Fields{
				"tick":   k.Now(),
				"thread": ti.Name,
				"age":    ti.Age,
				"base":   ti.BasePriority,
			}).Info("starvation boost")
		}
		boosted[ti.ID] = true
	}
	line := fmt.Sprintf("%5d  %s", k.Now(), strings.Join(ran, " > "))
	if len(names) > 0 {
		line += "  boost=" + strings.Join(names, ",")
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func current(k *kernel.Kernel) (kernel.ThreadInfo, bool) {
	for _, ti := range k.Threads() {
		if ti.Current {
			return ti, true
		}
	}
	return kernel.ThreadInfo{}, false
}
