package gpio

import "sync"

// FakeChip is a test double that records every mode and level change and
// returns scripted samples for input pins.
type FakeChip struct {
	mu sync.Mutex

	modes  map[int]Mode
	levels map[int]Level

	// scripted input samples per pin, each Get consumes one,
	// the last sample repeats once exhausted
	samples map[int][]Level
	index   map[int]int

	// writes holds every Set call per pin in order
	writes map[int][]Level

	// Closed tracks if Close was called
	Closed bool
}

func NewFakeChip() *FakeChip {
	return &FakeChip{
		modes:   make(map[int]Mode),
		levels:  make(map[int]Level),
		samples: make(map[int][]Level),
		index:   make(map[int]int),
		writes:  make(map[int][]Level),
	}
}

// Script queues input samples for a pin
func (f *FakeChip) Script(pin int, samples ...Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[pin] = samples
	f.index[pin] = 0
}

func (f *FakeChip) SetMode(pin int, mode Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes[pin] = mode
}

func (f *FakeChip) Set(pin int, level Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[pin] = level
	f.writes[pin] = append(f.writes[pin], level)
}

// Get returns the next scripted sample for the pin, or the last driven
// level for pins without a script.
func (f *FakeChip) Get(pin int) Level {
	f.mu.Lock()
	defer f.mu.Unlock()

	samples, ok := f.samples[pin]
	if !ok || len(samples) == 0 {
		return f.levels[pin]
	}

	sample := samples[f.index[pin]]
	if f.index[pin] < len(samples)-1 {
		f.index[pin]++
	}

	return sample
}

func (f *FakeChip) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Mode returns the last programmed mode of a pin
func (f *FakeChip) Mode(pin int) Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modes[pin]
}

// Writes returns all levels driven onto a pin in order
func (f *FakeChip) Writes(pin int) []Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Level, len(f.writes[pin]))
	copy(out, f.writes[pin])
	return out
}

// Level returns the last driven level of a pin
func (f *FakeChip) Level(pin int) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}
