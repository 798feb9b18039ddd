package misc

import (
	"fmt"
	"time"
)

// HardwareInitializationError Fatal error for power transitions that were
// not confirmed by the status line within their poll budget. Callers must
// not keep using the link after receiving this.
type HardwareInitializationError struct {
	op     string
	budget time.Duration
}

func (h *HardwareInitializationError) Error() string {
	return fmt.Sprintf("hardware initialization failed: %s not confirmed within %s", h.op, h.budget)
}

func (h *HardwareInitializationError) Is(e error) bool {
	_, ok := e.(*HardwareInitializationError)
	return ok
}

func NewHardwareInitializationError(op string, budget time.Duration) error {
	return &HardwareInitializationError{op, budget}
}

// NotConfiguredError Returned when a sequencing operation runs before the
// control pins were configured
type NotConfiguredError struct {
	op string
}

func (n *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s invoked before pin configuration", n.op)
}

func (n *NotConfiguredError) Is(e error) bool {
	_, ok := e.(*NotConfiguredError)
	return ok
}

func NewNotConfiguredError(op string) error {
	return &NotConfiguredError{op}
}
