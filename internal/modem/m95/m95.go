// Package m95 implements the power lifecycle of a Quectel M95 modem
// wired to the host with a power key, an emergency kill line and a
// status feedback line. It brings the modem into a verified on or off
// state with timed pin pulses, everything beyond power sequencing is
// delegated to the external modem engine.
package m95

import (
	"sync"
	"time"

	"github.com/LeoCommon/m95ctl/internal/modem"
	"github.com/LeoCommon/m95ctl/internal/netreg"
	"github.com/LeoCommon/m95ctl/pkg/gpio"
	"github.com/LeoCommon/m95ctl/pkg/log"
	"github.com/LeoCommon/m95ctl/pkg/misc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// StatusPollInterval is the sleep between status line samples
	StatusPollInterval = 100 * time.Millisecond

	// StartupPollBudget samples for power-on confirmation (~2s)
	StartupPollBudget = 20
	// ShutdownPollBudget samples for a graceful power-down, the modem
	// first detaches from the network so this is much longer (~12.5s)
	ShutdownPollBudget = 125
	// ForcedPollBudget samples after an emergency kill pulse (~1.5s)
	ForcedPollBudget = 15

	// SettleDelay after every verified transition before the modem may
	// be talked to again
	SettleDelay = 500 * time.Millisecond

	// Pulse hold times. The power key must stay asserted for the full
	// width the hardware needs to latch the request.
	powerOnHold   = 500 * time.Millisecond
	powerOnLatch  = 1100 * time.Millisecond
	powerOffHold  = 500 * time.Millisecond
	powerOffLatch = 750 * time.Millisecond
	killHold      = 500 * time.Millisecond
	killLatch     = 100 * time.Millisecond
)

// Default active levels, most carrier boards assert power and kill low
// and report status high
const (
	DefaultPowerOn  = gpio.Low
	DefaultKillOn   = gpio.Low
	DefaultStatusOn = gpio.High
)

// PinConfig holds the three control pins and their active levels.
// Populated exactly once by Configure, read by every sequencing call.
type PinConfig struct {
	Power   int
	PowerOn gpio.Level

	Kill   int
	KillOn gpio.Level

	Status   int
	StatusOn gpio.Level
}

// Device is the power controller for one modem. Startup and Shutdown
// must not run concurrently, the embedded lock serializes callers.
type Device struct {
	mu sync.Mutex

	chip   gpio.Chip
	engine modem.Engine

	pins *PinConfig

	// swapped out in tests to skip real delays
	sleep misc.SleepFunc
}

func New(chip gpio.Chip, engine modem.Engine) *Device {
	return &Device{
		chip:   chip,
		engine: engine,
		sleep:  time.Sleep,
	}
}

// Configure programs the control pins: status as input biased against
// its active level so a dead modem reads off, power and kill as
// push-pull outputs released to their inactive level.
func (d *Device) Configure(pins PinConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	statusBias := gpio.ModeInputPullUp
	if pins.StatusOn == gpio.High {
		statusBias = gpio.ModeInputPullDown
	}
	d.chip.SetMode(pins.Status, statusBias)

	d.chip.SetMode(pins.Kill, gpio.ModeOutput)
	d.chip.Set(pins.Kill, pins.KillOn.Invert())

	d.chip.SetMode(pins.Power, gpio.ModeOutput)
	d.chip.Set(pins.Power, pins.PowerOn.Invert())

	d.pins = &pins
}

// Init wires the device into the process: pin configuration, engine
// transport bring-up, provider registration and a forced shutdown to
// reach a known off baseline no matter what state the hardware was in.
func (d *Device) Init(reg *netreg.Registry, device string, dtr, rts bool, pins PinConfig) error {
	d.Configure(pins)

	if err := d.engine.Open(device, dtr, rts); err != nil {
		return err
	}

	reg.Register(netreg.CapGSM, d)
	reg.Register(netreg.CapTLS, d)
	reg.RegisterSocketFamily(netreg.AFInet, d)

	return d.Shutdown(true)
}

// Startup powers the modem on and verifies the transition on the
// status line. Already powered modems are left alone.
func (d *Device) Startup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pins == nil {
		return misc.NewNotConfiguredError("startup")
	}

	op := uuid.NewString()[:8]
	log.Info("powering on", zap.String("op", op), zap.Int("pin", d.pins.Power))

	if !d.statusOn() {
		d.pulse(d.pins.Power, d.pins.PowerOn, powerOnHold, powerOnLatch)
	}

	if !misc.WaitUntil(d.statusOn, StatusPollInterval, StartupPollBudget, d.sleep) {
		log.Error("status line never reported on", zap.String("op", op))
		return misc.NewHardwareInitializationError("power-on", StartupPollBudget*StatusPollInterval)
	}

	d.sleep(SettleDelay)

	log.Info("modem powered on", zap.String("op", op))
	return d.engine.StartupHandshake()
}

// Shutdown powers the modem off. The engine first gets a chance to
// detach from the network cooperatively, then the pin action is chosen
// by forced: emergency kill pulse, or a power key pulse when the
// status line still reports on.
func (d *Device) Shutdown(forced bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pins == nil {
		return misc.NewNotConfiguredError("shutdown")
	}

	op := uuid.NewString()[:8]
	log.Info("powering off", zap.String("op", op), zap.Bool("forced", forced))

	if d.engine.RequestShutdown() {
		// Best effort, a modem that ignores the cooperative request
		// just falls through to the pin action below
		misc.WaitUntil(d.statusOff, StatusPollInterval, ShutdownPollBudget, d.sleep)
	}

	budget := ShutdownPollBudget
	if forced {
		d.pulse(d.pins.Kill, d.pins.KillOn, killHold, killLatch)
		budget = ForcedPollBudget
	} else if d.statusOn() {
		d.pulse(d.pins.Power, d.pins.PowerOn, powerOffHold, powerOffLatch)
	}

	if !misc.WaitUntil(d.statusOff, StatusPollInterval, budget, d.sleep) {
		log.Error("status line never reported off", zap.String("op", op))
		return misc.NewHardwareInitializationError("power-off", time.Duration(budget)*StatusPollInterval)
	}

	d.sleep(SettleDelay)

	log.Info("modem powered off", zap.String("op", op))
	return nil
}

// statusOn samples the status line, there is no cached power state
func (d *Device) statusOn() bool {
	return d.chip.Get(d.pins.Status) == d.pins.StatusOn
}

func (d *Device) statusOff() bool {
	return !d.statusOn()
}

// pulse asserts a pin for the summed hold times and releases it. Pins
// are never left at their active level across a call boundary.
func (d *Device) pulse(pin int, active gpio.Level, holds ...time.Duration) {
	d.chip.Set(pin, active)
	for _, hold := range holds {
		d.sleep(hold)
	}
	d.chip.Set(pin, active.Invert())
}
