//go:build tinygo && !baremetal

package hal

import "os"

// New returns the HAL for TinyGo targets without pin mappings (linux, wasm).
// It is the regular host HAL; a ticker stands in for the window or headless
// loop that drives time on a Go host.
func New() HAL {
	h := newHostHAL(os.Stdout)
	go h.t.run()
	return h
}
