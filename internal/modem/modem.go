package modem

import (
	"bytes"
	"strings"
)

// Engine is the external modem engine this package drives. It owns the
// serial transport and the AT protocol, the power core only consumes
// this narrow contract.
type Engine interface {
	// Open brings up the modem transport on the given serial device.
	// dtr and rts select the flow control lines, both held inactive.
	Open(device string, dtr, rts bool) error
	// Close tears down the transport
	Close() error

	// RequestShutdown asks the modem to detach from the network and
	// power down on its own. Reports whether a cooperative shutdown
	// attempt was actually issued.
	RequestShutdown() bool

	// StartupHandshake syncs the command channel after power-on
	StartupHandshake() error

	// Bypass hands the raw serial port to the caller (non-zero) or
	// restores driver framing (zero)
	Bypass(enable bool) error
}

// ByteSliceToStr converts a byte slice to string
func ByteSliceToStr(s []byte) string {
	n := bytes.IndexByte(s, 0)
	if n >= 0 {
		s = s[:n]
	}
	return string(s)
}

func TrimCRLF(s string) string {
	return strings.Trim(s, "\r\n")
}

func MSTR(b []byte) string {
	return TrimCRLF(ByteSliceToStr(b))
}
