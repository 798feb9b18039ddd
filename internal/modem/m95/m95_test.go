package m95

import (
	"testing"
	"time"

	"github.com/LeoCommon/m95ctl/internal/netreg"
	"github.com/LeoCommon/m95ctl/pkg/gpio"
	"github.com/LeoCommon/m95ctl/pkg/log"
	"github.com/LeoCommon/m95ctl/pkg/misc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	log.Init(true)
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	opened bool
	device string
	dtr    bool
	rts    bool

	// what RequestShutdown reports back
	cooperative bool

	shutdownRequests int
	handshakes       int
}

func (f *fakeEngine) Open(device string, dtr, rts bool) error {
	f.opened = true
	f.device = device
	f.dtr = dtr
	f.rts = rts
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) RequestShutdown() bool {
	f.shutdownRequests++
	return f.cooperative
}

func (f *fakeEngine) StartupHandshake() error {
	f.handshakes++
	return nil
}

func (f *fakeEngine) Bypass(enable bool) error { return nil }

const (
	testPowerPin  = 17
	testKillPin   = 27
	testStatusPin = 22
)

func testPins() PinConfig {
	return PinConfig{
		Power:    testPowerPin,
		PowerOn:  DefaultPowerOn,
		Kill:     testKillPin,
		KillOn:   DefaultKillOn,
		Status:   testStatusPin,
		StatusOn: DefaultStatusOn,
	}
}

// newTestDevice builds a configured device with recorded sleeps
func newTestDevice(t *testing.T) (*Device, *gpio.FakeChip, *fakeEngine, *[]time.Duration) {
	t.Helper()

	chip := gpio.NewFakeChip()
	eng := &fakeEngine{}
	dev := New(chip, eng)

	sleeps := &[]time.Duration{}
	dev.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}

	dev.Configure(testPins())
	return dev, chip, eng, sleeps
}

func pollSleeps(sleeps []time.Duration) int {
	n := 0
	for _, d := range sleeps {
		if d == StatusPollInterval {
			n++
		}
	}
	return n
}

func TestConfigureReleasesOutputs(t *testing.T) {
	levels := []gpio.Level{gpio.Low, gpio.High}

	for _, powerOn := range levels {
		for _, killOn := range levels {
			for _, statusOn := range levels {
				chip := gpio.NewFakeChip()
				dev := New(chip, &fakeEngine{})

				dev.Configure(PinConfig{
					Power: testPowerPin, PowerOn: powerOn,
					Kill: testKillPin, KillOn: killOn,
					Status: testStatusPin, StatusOn: statusOn,
				})

				// Outputs must sit at their inactive level right away
				assert.Equal(t, gpio.ModeOutput, chip.Mode(testPowerPin))
				assert.Equal(t, powerOn.Invert(), chip.Level(testPowerPin))
				assert.Equal(t, gpio.ModeOutput, chip.Mode(testKillPin))
				assert.Equal(t, killOn.Invert(), chip.Level(testKillPin))

				// Status bias opposes its active level so a dead
				// modem reads off
				wantBias := gpio.ModeInputPullUp
				if statusOn == gpio.High {
					wantBias = gpio.ModeInputPullDown
				}
				assert.Equal(t, wantBias, chip.Mode(testStatusPin))
			}
		}
	}
}

func TestSequencingBeforeConfigure(t *testing.T) {
	dev := New(gpio.NewFakeChip(), &fakeEngine{})
	dev.sleep = func(time.Duration) {}

	assert.ErrorIs(t, dev.Startup(), &misc.NotConfiguredError{})
	assert.ErrorIs(t, dev.Shutdown(false), &misc.NotConfiguredError{})
}

func TestStartupAlreadyOn(t *testing.T) {
	dev, chip, eng, _ := newTestDevice(t)
	chip.Script(testStatusPin, gpio.High)

	require.NoError(t, dev.Startup())

	// No pulse, only the release from Configure
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, 1, eng.handshakes)
}

func TestStartupPulsesAndVerifies(t *testing.T) {
	dev, chip, eng, sleeps := newTestDevice(t)

	// Off before the pulse, on at the third poll sample
	chip.Script(testStatusPin, gpio.Low, gpio.Low, gpio.Low, gpio.High)

	require.NoError(t, dev.Startup())

	// Exactly one pulse: release (Configure), assert, release
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testKillPin))
	assert.Equal(t, 1, eng.handshakes)

	// Pulse holds, two poll sleeps, settle delay
	assert.Equal(t, []time.Duration{
		powerOnHold, powerOnLatch,
		StatusPollInterval, StatusPollInterval,
		SettleDelay,
	}, *sleeps)
}

func TestStartupPulseWidth(t *testing.T) {
	dev, chip, _, sleeps := newTestDevice(t)
	chip.Script(testStatusPin, gpio.Low, gpio.High)

	require.NoError(t, dev.Startup())

	// The power key stays asserted for the full latch width
	var asserted time.Duration
	for _, d := range (*sleeps)[:2] {
		asserted += d
	}
	assert.GreaterOrEqual(t, asserted, 1600*time.Millisecond)
}

func TestStartupTimeout(t *testing.T) {
	dev, chip, eng, sleeps := newTestDevice(t)
	chip.Script(testStatusPin, gpio.Low)

	err := dev.Startup()
	assert.ErrorIs(t, err, &misc.HardwareInitializationError{})

	// One pulse, then nothing else after the failed verification
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, 0, eng.handshakes)

	// Full poll budget burned, no settle delay after a failure
	assert.Equal(t, StartupPollBudget, pollSleeps(*sleeps))
	assert.Equal(t, StatusPollInterval, (*sleeps)[len(*sleeps)-1])
}

func TestShutdownAlreadyOff(t *testing.T) {
	dev, chip, eng, _ := newTestDevice(t)
	eng.cooperative = false
	chip.Script(testStatusPin, gpio.Low)

	require.NoError(t, dev.Shutdown(false))

	// No pulse on either pin, only the Configure releases
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testKillPin))
	assert.Equal(t, 1, eng.shutdownRequests)
}

func TestShutdownForcedAlwaysKills(t *testing.T) {
	dev, chip, _, sleeps := newTestDevice(t)

	// Status reads on until after the kill pulse
	chip.Script(testStatusPin, gpio.High, gpio.Low)

	require.NoError(t, dev.Shutdown(true))

	// Kill pulsed even though nobody sampled the status line first
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testKillPin))
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testPowerPin))

	assert.Equal(t, []time.Duration{
		killHold, killLatch,
		StatusPollInterval,
		SettleDelay,
	}, *sleeps)
}

func TestShutdownForcedBudget(t *testing.T) {
	dev, chip, _, sleeps := newTestDevice(t)
	chip.Script(testStatusPin, gpio.High)

	err := dev.Shutdown(true)
	assert.ErrorIs(t, err, &misc.HardwareInitializationError{})

	// The kill path verifies with the short budget
	expected := []time.Duration{killHold, killLatch}
	for i := 0; i < ForcedPollBudget; i++ {
		expected = append(expected, StatusPollInterval)
	}
	assert.Equal(t, expected, *sleeps)
}

func TestShutdownGracefulPulsesPower(t *testing.T) {
	dev, chip, eng, sleeps := newTestDevice(t)

	// No cooperative attempt went out, modem still on
	eng.cooperative = false
	chip.Script(testStatusPin, gpio.High, gpio.High, gpio.Low)

	require.NoError(t, dev.Shutdown(false))

	// Power key pulsed, kill untouched
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testKillPin))

	assert.Equal(t, []time.Duration{
		powerOffHold, powerOffLatch,
		StatusPollInterval,
		SettleDelay,
	}, *sleeps)
}

func TestShutdownCooperativeDetach(t *testing.T) {
	dev, chip, eng, _ := newTestDevice(t)

	// The engine got a shutdown request out and the modem detaches on
	// its own during the cooperative wait
	eng.cooperative = true
	chip.Script(testStatusPin, gpio.Low)

	require.NoError(t, dev.Shutdown(false))

	// No pin action was needed at all
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testPowerPin))
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testKillPin))
	assert.Equal(t, 1, eng.shutdownRequests)
}

func TestShutdownStuck(t *testing.T) {
	dev, chip, eng, sleeps := newTestDevice(t)

	eng.cooperative = true
	chip.Script(testStatusPin, gpio.High)

	err := dev.Shutdown(false)
	assert.ErrorIs(t, err, &misc.HardwareInitializationError{})

	// Cooperative wait and verification both exhaust the long budget
	assert.Equal(t, 2*ShutdownPollBudget, pollSleeps(*sleeps))

	// The graceful path never touches the kill line
	assert.Equal(t, []gpio.Level{gpio.High}, chip.Writes(testKillPin))
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testPowerPin))
}

func TestInitRegistersAndForcesOff(t *testing.T) {
	chip := gpio.NewFakeChip()
	eng := &fakeEngine{}
	dev := New(chip, eng)
	dev.sleep = func(time.Duration) {}

	chip.Script(testStatusPin, gpio.Low)

	reg := netreg.New()
	require.NoError(t, dev.Init(reg, "/dev/ttyAMA0", false, false, testPins()))

	assert.True(t, eng.opened)
	assert.Equal(t, "/dev/ttyAMA0", eng.device)
	assert.False(t, eng.dtr)
	assert.False(t, eng.rts)

	// The device is now the process provider for gsm, tls and the
	// first socket family slot
	for _, capability := range []string{netreg.CapGSM, netreg.CapTLS} {
		p, ok := reg.Lookup(capability)
		assert.True(t, ok)
		assert.Same(t, dev, p)
	}
	p, ok := reg.SocketFamily(netreg.AFInet)
	assert.True(t, ok)
	assert.Same(t, dev, p)

	// Init ends in a forced shutdown, the kill line was pulsed
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, chip.Writes(testKillPin))
}

func TestInitIsIdempotentForStartup(t *testing.T) {
	chip := gpio.NewFakeChip()
	eng := &fakeEngine{}
	dev := New(chip, eng)
	dev.sleep = func(time.Duration) {}

	// Off after the forced baseline shutdown, on after the startup pulse
	chip.Script(testStatusPin, gpio.Low, gpio.Low, gpio.High)

	require.NoError(t, dev.Init(netreg.New(), "/dev/ttyAMA0", false, false, testPins()))
	require.NoError(t, dev.Startup())

	assert.Equal(t, 1, eng.handshakes)
}
