//go:build tinygo && baremetal

package port

import "runtime/interrupt"

// hwMask masks the real interrupt controller while the kernel's own mask is
// set, so ISRs that call Raise or RaiseTick never observe a half-updated port.
type hwMask struct {
	state interrupt.State
}

func (m *hwMask) disable() { m.state = interrupt.Disable() }
func (m *hwMask) restore() { interrupt.Restore(m.state) }
