// Package gpio models the modem control lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device, the fake
// implementation allows testing the power sequencing without hardware.
package gpio

import "fmt"

// Level is the logical state of a control line. Which physical level
// counts as "active" depends on the PCB design, so levels are always
// interpreted against a configured active level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Invert returns the opposite level. The inactive level of a pin is the
// logical negation of its active level.
func (l Level) Invert() Level {
	return !l
}

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// ParseLevel converts a config string into a Level
func ParseLevel(s string) (Level, error) {
	switch s {
	case "high":
		return High, nil
	case "low":
		return Low, nil
	}
	return Low, fmt.Errorf("level was neither high nor low, got %v", s)
}

// Mode is the requested direction and bias of a line
type Mode int

const (
	// ModeInputPullUp input, biased high while floating
	ModeInputPullUp Mode = iota
	// ModeInputPullDown input, biased low while floating
	ModeInputPullDown
	// ModeOutput push-pull output
	ModeOutput
)

// Chip sets and reads control lines. Set and Get are synchronous and do
// not return errors, implementations absorb driver faults internally.
type Chip interface {
	// SetMode programs the direction and bias of a pin
	SetMode(pin int, mode Mode)

	// Set drives an output pin to the given level
	Set(pin int, level Level)

	// Get samples the current level of a pin
	Get(pin int) Level

	// Close releases all requested lines
	Close() error
}
