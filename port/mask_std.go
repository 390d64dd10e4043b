//go:build !(tinygo && baremetal)

package port

// hwMask is a no-op off bare metal: the only interrupt sources are other
// goroutines, and they never touch kernel state directly.
type hwMask struct{}

func (hwMask) disable() {}
func (hwMask) restore() {}
