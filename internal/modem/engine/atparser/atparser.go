package atparser

import (
	"fmt"
	"strings"
)

type ReplyKind string

const (
	ReplyUnknown   ReplyKind = "unknown"
	ReplyOK        ReplyKind = "ok"
	ReplyError     ReplyKind = "error"
	ReplyPowerDown ReplyKind = "powerdown"
)

const (
	AtReplyOk        = "OK"
	AtReplyError     = "ERROR"
	AtReplyPowerDown = "NORMAL POWER DOWN"
)

// Classify maps a terminal reply line onto its kind
func Classify(line string) ReplyKind {
	switch strings.TrimSpace(line) {
	case AtReplyOk:
		return ReplyOK
	case AtReplyError:
		return ReplyError
	case AtReplyPowerDown:
		return ReplyPowerDown
	}
	return ReplyUnknown
}

// CMEError parses "+CME ERROR: <code>" into the numeric code
func CMEError(line string) (int, error) {
	const header = "+CME ERROR:"
	if !strings.HasPrefix(line, header) {
		return 0, fmt.Errorf("unknown header %v", line)
	}

	var code int
	if _, err := fmt.Sscanf(strings.TrimSpace(line[len(header):]), "%d", &code); err != nil {
		return 0, fmt.Errorf("cant parse error code %v", line)
	}

	return code, nil
}
