//go:build !linux

package gpio

// RealHardware is not available on non-Linux platforms.
type RealHardware struct {
	Board *Board
	LEDs  LEDs
}

// OpenReal returns ErrNotSupported on non-Linux platforms.
func OpenReal(chipName string, b Bindings, onEdge func()) (*RealHardware, error) {
	return nil, ErrNotSupported
}

// Close is a no-op on non-Linux platforms.
func (h *RealHardware) Close() error {
	return nil
}
