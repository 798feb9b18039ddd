//go:build !linux

package gpio

import "errors"

// CdevChip is not available on non-Linux platforms.
type CdevChip struct{}

// NewCdevChip returns an error on non-Linux platforms.
func NewCdevChip(device string) (*CdevChip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (c *CdevChip) SetMode(pin int, mode Mode) {}

func (c *CdevChip) Set(pin int, level Level) {}

func (c *CdevChip) Get(pin int) Level {
	return Low
}

func (c *CdevChip) Close() error {
	return nil
}
