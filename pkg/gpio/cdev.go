//go:build linux

package gpio

import (
	"fmt"

	"github.com/LeoCommon/m95ctl/pkg/log"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"
)

// CdevChip drives real hardware through the Linux GPIO character device.
type CdevChip struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewCdevChip opens the given gpiochip device, e.g. "gpiochip0".
func NewCdevChip(device string) (*CdevChip, error) {
	chip, err := gpiocdev.NewChip(device)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", device, err)
	}

	return &CdevChip{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// SetMode requests the line with the wanted direction and bias. A line
// that was requested before is released and re-requested.
func (c *CdevChip) SetMode(pin int, mode Mode) {
	if line, ok := c.lines[pin]; ok {
		_ = line.Close()
		delete(c.lines, pin)
	}

	var opts []gpiocdev.LineReqOption
	switch mode {
	case ModeInputPullUp:
		opts = []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	case ModeInputPullDown:
		opts = []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	case ModeOutput:
		opts = []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	}

	line, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		log.Error("gpio line request failed", zap.Int("pin", pin), zap.Error(err))
		return
	}

	c.lines[pin] = line
}

func (c *CdevChip) Set(pin int, level Level) {
	line, ok := c.lines[pin]
	if !ok {
		log.Error("gpio set on unrequested pin", zap.Int("pin", pin))
		return
	}

	value := 0
	if level == High {
		value = 1
	}

	if err := line.SetValue(value); err != nil {
		log.Error("gpio set failed", zap.Int("pin", pin), zap.Error(err))
	}
}

func (c *CdevChip) Get(pin int) Level {
	line, ok := c.lines[pin]
	if !ok {
		log.Error("gpio get on unrequested pin", zap.Int("pin", pin))
		return Low
	}

	value, err := line.Value()
	if err != nil {
		log.Error("gpio get failed", zap.Int("pin", pin), zap.Error(err))
		return Low
	}

	return value != 0
}

// Close releases all lines and the chip handle
func (c *CdevChip) Close() error {
	var firstErr error

	for pin, line := range c.lines {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pin %d: %w", pin, err)
		}
	}

	if err := c.chip.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close chip: %w", err)
	}

	return firstErr
}
