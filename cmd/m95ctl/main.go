package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/LeoCommon/m95ctl/internal/client/config"
	"github.com/LeoCommon/m95ctl/internal/modem/engine"
	"github.com/LeoCommon/m95ctl/internal/modem/m95"
	"github.com/LeoCommon/m95ctl/internal/netreg"
	"github.com/LeoCommon/m95ctl/pkg/gpio"
	"github.com/LeoCommon/m95ctl/pkg/log"
	"go.uber.org/zap"
)

const (
	MODEM_START_RETRY_COUNT = 3    // Try 3 times
	MODEM_START_RETRY_WAIT  = 5000 // Wait time in milliseconds => 5 seconds between each tries
)

func parseFlags() *config.CLIFlags {
	flags := &config.CLIFlags{}

	flag.StringVar(&flags.ConfigPath, "config", config.DefaultConfigPath, "path to the config file")
	flag.StringVar(&flags.Command, "cmd", "cycle", "power command: up, down, kill or cycle")
	flag.BoolVar(&flags.Debug, "debug", config.DefaultDebugModeValue, "enable debug logging")
	flag.Parse()

	return flags
}

func pinConfig(c *config.MainConfig) m95.PinConfig {
	// Polarities were verified during config load
	powerOn, _ := gpio.ParseLevel(c.Pins.PowerOn)
	killOn, _ := gpio.ParseLevel(c.Pins.KillOn)
	statusOn, _ := gpio.ParseLevel(c.Pins.StatusOn)

	return m95.PinConfig{
		Power: c.Pins.Power, PowerOn: powerOn,
		Kill: c.Pins.Kill, KillOn: killOn,
		Status: c.Pins.Status, StatusOn: statusOn,
	}
}

func run(dev *m95.Device, command string) error {
	switch command {
	case "up":
		return startupWithRetry(dev)
	case "down":
		return dev.Shutdown(false)
	case "kill":
		return dev.Shutdown(true)
	case "cycle":
		if err := dev.Shutdown(false); err != nil {
			return err
		}
		return startupWithRetry(dev)
	}

	return fmt.Errorf("unknown command %q", command)
}

func startupWithRetry(dev *m95.Device) error {
	var err error

	for attempts := 0; attempts < MODEM_START_RETRY_COUNT; attempts++ {
		if attempts > 0 {
			time.Sleep(time.Duration(MODEM_START_RETRY_WAIT) * time.Millisecond)
		}

		err = dev.Startup()
		if err != nil {
			log.Error("Failed to start modem", zap.Error(err))
			continue
		}

		// Break out of the loop
		break
	}

	return err
}

func main() {
	flags := parseFlags()

	// Initialize logger
	log.Init(flags.Debug)
	defer log.Sync()

	if err := config.ValidatePath(flags.ConfigPath); err != nil {
		log.Error("invalid config path", zap.Error(err))
		os.Exit(1)
	}

	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Error("could not load config", zap.Error(err))
		os.Exit(1)
	}

	chip, err := gpio.NewCdevChip(conf.Pins.Chip)
	if err != nil {
		log.Error("could not open gpio chip", zap.Error(err))
		os.Exit(1)
	}
	defer chip.Close()

	eng := engine.Create(nil)
	defer eng.Close()

	dev := m95.New(chip, eng)

	// Init ends in a forced shutdown, the modem starts from a known
	// off baseline no matter what state the board was left in
	if err = dev.Init(netreg.New(), conf.Serial.Device, conf.Serial.DTR, conf.Serial.RTS, pinConfig(conf)); err != nil {
		log.Error("modem init failed", zap.Error(err))
		os.Exit(1)
	}

	if err = run(dev, flags.Command); err != nil {
		log.Error("power command failed", zap.String("cmd", flags.Command), zap.Error(err))
		os.Exit(1)
	}

	log.Info("power command completed", zap.String("cmd", flags.Command))
}
