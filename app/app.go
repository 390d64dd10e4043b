// Package app wires the kernel demo: a sampler periodic event feeding a
// producer/consumer pair over a FIFO, an LED blinker, the monitor and an
// optional CPU hog that shows starvation avoidance.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sparkrt/hal"
	"sparkrt/kernel"
	"sparkrt/monitor"
	"sparkrt/port"

	"golang.org/x/sync/errgroup"
)

const (
	sampleFIFO = 0

	// Everything but the hog sits below DontStarvePriority so that aging
	// can lift it over the hog.
	prioHog      = 1
	prioProducer = 20
	prioConsumer = 30
	prioMonitor  = 40
	prioBlinker  = 50
)

// Config selects the demo workload.
type Config struct {
	// Policy is "priority-aging" (default) or "round-robin".
	Policy string
	// Hog adds a highest-priority thread that never sleeps.
	Hog bool

	SamplePeriod  uint32 // ticks between samples, default 10
	MonitorPeriod uint32 // ticks between monitor updates, default 500
	BlinkPeriod   uint32 // ticks per LED half cycle, default 500
}

func (c *Config) setDefaults() {
	if c.SamplePeriod == 0 {
		c.SamplePeriod = 10
	}
	if c.MonitorPeriod == 0 {
		c.MonitorPeriod = 500
	}
	if c.BlinkPeriod == 0 {
		c.BlinkPeriod = 500
	}
}

type threadSpec struct {
	name  string
	prio  uint8
	limit uint32
	entry func()
}

// System is a kernel on the goroutine port plus the demo threads.
type System struct {
	h    hal.HAL
	cfg  Config
	k    *kernel.Kernel
	port *port.Port
	mon  *monitor.Monitor

	sample *kernel.Semaphore

	// Owned by the producer and consumer threads.
	produced uint32
	consumed uint32
	missed   uint32

	mu  sync.Mutex
	err error
}

// NewSystem builds the kernel and registers every demo thread. Nothing runs
// until Run.
func NewSystem(h hal.HAL, cfg Config) (*System, error) {
	cfg.setDefaults()
	policy, err := kernel.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	p := port.New()
	k := kernel.New(p, kernel.Config{Policy: policy, Logger: h.Logger()})
	s := &System{
		h:      h,
		cfg:    cfg,
		k:      k,
		port:   p,
		mon:    monitor.New(h.Display(), h.Logger()),
		sample: k.NewSemaphore(0),
	}

	threads := []threadSpec{
		{"producer", prioProducer, kernel.DefaultStarvationLimit, s.producer},
		{"consumer", prioConsumer, kernel.DefaultStarvationLimit, s.consumer},
		{"monitor", prioMonitor, kernel.DefaultStarvationLimit, s.watch},
		{"blinker", prioBlinker, kernel.DefaultStarvationLimit, s.blinker},
	}
	if cfg.Hog {
		threads = append(threads, threadSpec{"hog", prioHog, 0, s.hog})
	}
	for _, t := range threads {
		if _, err := k.AddThread(s.guard(t.name, t.entry), t.prio, t.limit, t.name); err != nil {
			return nil, fmt.Errorf("app: add thread %s: %w", t.name, err)
		}
	}
	if _, err := k.AddIdleThread("idle"); err != nil {
		return nil, fmt.Errorf("app: add idle thread: %w", err)
	}
	if err := k.AddPeriodicEvent(s.sample.Signal, cfg.SamplePeriod); err != nil {
		return nil, fmt.Errorf("app: add sampler: %w", err)
	}
	if err := k.InitFIFO(sampleFIFO); err != nil {
		return nil, fmt.Errorf("app: init fifo: %w", err)
	}

	bootScreen(h, fmt.Sprintf("%d threads, %s", k.ThreadCount(), policy))
	return s, nil
}

// Kernel returns the system's kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Run launches the kernel and pumps HAL ticks into it until ctx is done or a
// thread panics. A clean stop returns nil.
func (s *System) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.k.Launch()
		if errors.Is(err, port.ErrStopped) {
			return s.failure()
		}
		return err
	})
	g.Go(func() error {
		return s.pumpTicks(ctx)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.port.Done():
		}
		s.port.Stop()
		return nil
	})
	return g.Wait()
}

// Stop ends Run.
func (s *System) Stop() { s.port.Stop() }

func (s *System) pumpTicks(ctx context.Context) error {
	var ticks <-chan uint64
	if t := s.h.Time(); t != nil {
		ticks = t.Ticks()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.port.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			s.port.RaiseTick()
		}
	}
}

func (s *System) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.port.Stop()
}

func (s *System) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *System) producer() {
	f := s.k.FIFO(sampleFIFO)
	for {
		s.sample.Wait()
		s.produced++
		f.Write(s.produced)
	}
}

func (s *System) consumer() {
	f := s.k.FIFO(sampleFIFO)
	var last uint32
	for {
		v := f.Read()
		if v > last+1 {
			s.missed += v - last - 1
		}
		last = v
		s.consumed++
		if s.consumed%100 == 0 {
			s.h.Logger().WriteLineString(fmt.Sprintf("consumer: %d samples, %d missed", s.consumed, s.missed))
		}
	}
}

func (s *System) watch() {
	for {
		s.k.Sleep(s.cfg.MonitorPeriod)
		if err := s.mon.Update(monitor.Take(s.k)); err != nil && !errors.Is(err, hal.ErrNotImplemented) {
			s.h.Logger().WriteLineString("monitor: " + err.Error())
		}
	}
}

func (s *System) blinker() {
	led := s.h.LED()
	for {
		led.High()
		s.k.Sleep(s.cfg.BlinkPeriod)
		led.Low()
		s.k.Sleep(s.cfg.BlinkPeriod)
	}
}

// hog burns CPU at the best priority. It only yields, so without aging the
// threads below it would never run.
func (s *System) hog() {
	var acc uint32
	for {
		for i := uint32(0); i < 10000; i++ {
			acc = acc*31 + i
		}
		s.k.Yield()
	}
}

// New initializes and starts the system with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig starts the system in the background and returns a step
// function for the host runners. The step function reports why the system
// stopped, once it has.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	var final error
	return func() error {
		if final != nil {
			return final
		}
		select {
		case err := <-done:
			if err == nil {
				err = errors.New("app: system stopped")
			}
			final = err
			return err
		default:
			return nil
		}
	}
}

// Run starts the system and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func RunWithConfig(h hal.HAL, cfg Config) {
	s, err := NewSystem(h, cfg)
	if err == nil {
		err = s.Run(context.Background())
	}
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString(err.Error())
		}
	}
	select {}
}
