package config

import (
	"fmt"
	"os"

	"github.com/LeoCommon/m95ctl/pkg/gpio"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProductName       = "m95ctl"
	DefaultConfigPath = "/etc/" + ProductName + "/config.toml"

	DefaultGpioChip   = "gpiochip0"
	DefaultSerialPort = "/dev/ttyS1"

	DefaultDebugModeValue = false
)

type CLIFlags struct {
	ConfigPath string
	Command    string
	Debug      bool
}

// SerialConfig names the UART and the wanted flow control line states
type SerialConfig struct {
	Device string `toml:"device"`
	DTR    bool   `toml:"dtr,omitempty"`
	RTS    bool   `toml:"rts,omitempty"`
}

// PinsConfig holds the three control pins and their active levels as
// written in the config file
type PinsConfig struct {
	Chip string `toml:"chip,omitempty"`

	Power   int    `toml:"power"`
	PowerOn string `toml:"power_on,omitempty"`

	Kill   int    `toml:"kill"`
	KillOn string `toml:"kill_on,omitempty"`

	Status   int    `toml:"status"`
	StatusOn string `toml:"status_on,omitempty"`
}

type MainConfig struct {
	Serial SerialConfig `toml:"serial"`
	Pins   PinsConfig   `toml:"pins"`
}

// Load reads and verifies the config file at the supplied path
func Load(path string) (*MainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &MainConfig{}
	if err = toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	config.fillDefaults()

	if err = config.Verify(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *MainConfig) fillDefaults() {
	if c.Serial.Device == "" {
		c.Serial.Device = DefaultSerialPort
	}

	if c.Pins.Chip == "" {
		c.Pins.Chip = DefaultGpioChip
	}

	// Most carrier boards assert power and kill low and report status
	// high, missing polarities fall back to that
	if c.Pins.PowerOn == "" {
		c.Pins.PowerOn = gpio.Low.String()
	}
	if c.Pins.KillOn == "" {
		c.Pins.KillOn = gpio.Low.String()
	}
	if c.Pins.StatusOn == "" {
		c.Pins.StatusOn = gpio.High.String()
	}
}

// Verify checks the config for mistakes that would show up as pin
// sequencing failures much later
func (c *MainConfig) Verify() error {
	for name, polarity := range map[string]string{
		"power_on":  c.Pins.PowerOn,
		"kill_on":   c.Pins.KillOn,
		"status_on": c.Pins.StatusOn,
	} {
		if _, err := gpio.ParseLevel(polarity); err != nil {
			return fmt.Errorf("pins.%s: %w", name, err)
		}
	}

	pins := map[string]int{
		"power":  c.Pins.Power,
		"kill":   c.Pins.Kill,
		"status": c.Pins.Status,
	}
	seen := map[int]string{}
	for name, pin := range pins {
		if pin < 0 {
			return fmt.Errorf("pins.%s: negative pin number %d", name, pin)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("pins.%s and pins.%s share pin %d", name, other, pin)
		}
		seen[pin] = name
	}

	return nil
}

// ValidatePath rejects directories early so Load errors stay readable
func ValidatePath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}

	if s.IsDir() {
		return fmt.Errorf("supplied config file '%s' is a directory", path)
	}

	return nil
}
