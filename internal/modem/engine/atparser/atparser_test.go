package atparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, ReplyOK, Classify("OK"))
	assert.Equal(t, ReplyOK, Classify("OK\r\n"))
	assert.Equal(t, ReplyError, Classify("ERROR"))
	assert.Equal(t, ReplyPowerDown, Classify("NORMAL POWER DOWN"))
	assert.Equal(t, ReplyUnknown, Classify("+QPOWD: 1"))
	assert.Equal(t, ReplyUnknown, Classify(""))
}

func TestCMEError(t *testing.T) {
	code, err := CMEError("+CME ERROR: 10")
	assert.NoError(t, err)
	assert.Equal(t, 10, code)

	_, err = CMEError("OK")
	assert.Error(t, err)

	_, err = CMEError("+CME ERROR: banana")
	assert.Error(t, err)
}
