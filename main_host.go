//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"sparkrt/app"
	"sparkrt/hal"
	"sparkrt/internal/buildinfo"
	"sparkrt/kernel"
)

func main() {
	var cfg hal.HeadlessConfig
	var appCfg app.Config
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 1000, "Kernel tick rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&appCfg.Policy, "policy", "priority-aging", "Scheduling policy: priority-aging or round-robin.")
	flag.BoolVar(&appCfg.Hog, "hog", false, "Add a CPU hog thread at the best priority.")
	version := flag.Bool("version", false, "Print the build version and exit.")
	flag.Parse()

	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	if _, err := kernel.ParsePolicy(appCfg.Policy); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, appCfg)
	}

	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
