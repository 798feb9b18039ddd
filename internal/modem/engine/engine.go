// Package engine talks AT to the modem over its UART. The power core
// only sees the modem.Engine contract, the protocol stays in here.
package engine

import (
	"errors"
	"time"

	"github.com/LeoCommon/m95ctl/internal/modem"
	"github.com/LeoCommon/m95ctl/internal/modem/engine/atparser"
	"github.com/LeoCommon/m95ctl/pkg/log"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// The M95 runs its command channel at 115200 without hardware flow
	// control
	Baudrate = 115200

	AtSync     = "AT"
	AtEchoOff  = "ATE0"
	AtPowerOff = "AT+QPOWD=1"

	// Handshake retries while the command channel comes up after
	// power-on
	syncRetryCount = 5
	syncRetryWait  = 500 * time.Millisecond
)

// Engine drives the modem command channel over a serial port
type Engine struct {
	modem.Engine

	serConf *serial.Mode
	serPort serial.Port

	bypassed bool
}

// Create builds an engine, a custom serial config overrides the default
// 115200 8N1 mode
func Create(customSerialConfig *serial.Mode) *Engine {
	e := new(Engine)

	if customSerialConfig != nil {
		e.serConf = customSerialConfig
	} else {
		e.serConf = &serial.Mode{
			BaudRate: Baudrate,
		}
	}

	return e
}

// readSerial
func (e *Engine) readSerial(n int) (string, error) {
	buf := make([]byte, n)
	_, readRes := e.serPort.Read(buf)
	if readRes != nil {
		log.Error("serial read failed", zap.Int("n", n))
		return "", readRes
	}

	return modem.MSTR(buf), nil
}

// writeSerial
func (e *Engine) writeSerial(data string) error {
	_, err := e.serPort.Write([]byte(data + "\r\n"))
	return err
}

// writeSerialWithResult
func (e *Engine) writeSerialWithResult(data string, expected atparser.ReplyKind) error {
	log.Debug("Writing serial data with result", zap.String("data", data))
	writeRes := e.writeSerial(data)
	if writeRes != nil {
		return writeRes
	}

	// Read 128 bytes, the result reader is for basic stuff like ERROR or OK
	strBuf, readRes := e.readSerial(128)
	if readRes != nil {
		return errors.New("serial reading failed")
	}

	if got := atparser.Classify(strBuf); got != expected {
		log.Error("serial write with result failed",
			zap.String("expected", string(expected)),
			zap.String("received", strBuf))
		return errors.New("serial write with result failed")
	}

	return nil
}

// Open brings up the modem transport. dtr and rts are the wanted
// states of the flow control lines, both held inactive on the M95.
func (e *Engine) Open(device string, dtr, rts bool) error {
	s, err := serial.Open(device, e.serConf)
	if err != nil {
		log.Error("error while opening serial device", zap.Error(err))
		return err
	}

	// Set read timeout
	_ = s.SetReadTimeout(1 * time.Second)

	// Park the flow control lines, the M95 board does not use them yet
	_ = s.SetDTR(dtr)
	_ = s.SetRTS(rts)

	// Assign serial port
	e.serPort = s
	return nil
}

func (e *Engine) initialized() error {
	if e.serPort == nil {
		return errors.New("serial port not ready")
	}

	if e.bypassed {
		return errors.New("serial port handed out in bypass mode")
	}

	return nil
}

// RequestShutdown asks the modem to detach and power down on its own.
// Reports whether the cooperative request actually went out, the
// caller falls back to pin action either way.
func (e *Engine) RequestShutdown() bool {
	if e.initialized() != nil {
		return false
	}

	if err := e.writeSerial(AtPowerOff); err != nil {
		log.Error("cooperative shutdown request failed", zap.Error(err))
		return false
	}

	// The modem answers NORMAL POWER DOWN on its way out, nice to have
	// but the status line is the source of truth
	if reply, err := e.readSerial(128); err == nil {
		log.Debug("shutdown reply", zap.String("reply", reply))
	}

	return true
}

// StartupHandshake syncs the command channel after power-on and turns
// command echo off
func (e *Engine) StartupHandshake() error {
	initError := e.initialized()
	if initError != nil {
		return initError
	}

	// The channel needs a moment after power-on, sync until AT answers
	var err error
	for attempts := 0; attempts < syncRetryCount; attempts++ {
		if attempts > 0 {
			time.Sleep(syncRetryWait)
		}

		if err = e.writeSerialWithResult(AtSync, atparser.ReplyOK); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	return e.writeSerialWithResult(AtEchoOff, atparser.ReplyOK)
}

// Bypass hands the raw serial port to the caller or restores driver
// framing
func (e *Engine) Bypass(enable bool) error {
	if e.serPort == nil {
		return errors.New("serial port not ready")
	}

	e.bypassed = enable
	return nil
}

// Port exposes the raw serial port while bypass mode is active
func (e *Engine) Port() (serial.Port, error) {
	if !e.bypassed {
		return nil, errors.New("port only available in bypass mode")
	}

	return e.serPort, nil
}

func (e *Engine) Close() error {
	if e.serPort == nil {
		return nil
	}

	err := e.serPort.Close()
	e.serPort = nil
	e.bypassed = false
	return err
}
