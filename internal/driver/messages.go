package driver

import (
	"github.com/dumacp/go-a9g/internal/nmea"
)

// MsgStart opens the port, enables positioning and schedules polling.
type MsgStart struct{}

// MsgStop halts polling, disables positioning and closes the port.
type MsgStop struct{}

// MsgSend writes a command through the correlator.
type MsgSend struct {
	Command string
}

// MsgResult answers MsgStart, MsgStop and MsgSend.
type MsgResult struct {
	Err error
}

type MsgGetState struct{}
type MsgGetDataset struct{}
type MsgGetResponses struct{}

type MsgState struct {
	State State
}

type MsgDataset struct {
	Dataset map[string]nmea.Fix
}

type MsgResponses struct {
	Responses map[string]string
}

type msgData struct {
	data []byte
}

type msgReadErr struct {
	err error
}

type msgTick struct {
	task       string
	generation int
}
