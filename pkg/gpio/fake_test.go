package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFakeChipRecordsWrites(t *testing.T) {
	f := NewFakeChip()

	f.SetMode(4, ModeOutput)
	f.Set(4, High)
	f.Set(4, Low)

	assert.Equal(t, ModeOutput, f.Mode(4))
	assert.Equal(t, []Level{High, Low}, f.Writes(4))
	assert.Equal(t, Low, f.Level(4))
}

func TestFakeChipScriptedSamples(t *testing.T) {
	f := NewFakeChip()
	f.Script(17, Low, Low, High)

	assert.Equal(t, Low, f.Get(17))
	assert.Equal(t, Low, f.Get(17))
	assert.Equal(t, High, f.Get(17))

	// Last sample repeats once exhausted
	assert.Equal(t, High, f.Get(17))
}

func TestFakeChipUnscriptedGetReturnsDrivenLevel(t *testing.T) {
	f := NewFakeChip()

	f.Set(9, High)
	assert.Equal(t, High, f.Get(9))
}

func TestLevelInvert(t *testing.T) {
	assert.Equal(t, Low, High.Invert())
	assert.Equal(t, High, Low.Invert())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("high")
	assert.NoError(t, err)
	assert.Equal(t, High, l)

	l, err = ParseLevel("low")
	assert.NoError(t, err)
	assert.Equal(t, Low, l)

	_, err = ParseLevel("active")
	assert.Error(t, err)
}
