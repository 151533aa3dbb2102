package device

import (
	"fmt"

	"github.com/dumacp/go-logs/pkg/logs"
	"github.com/looplab/fsm"
)

const (
	sClosed = "sClosed"
	sOpen   = "sOpen"
	sFailed = "sFailed"
)

const (
	openEvent  = "openEvent"
	closeEvent = "closeEvent"
	failEvent  = "failEvent"
)

func enterState(state string) string {
	return fmt.Sprintf("enter_%s", state)
}

func initFSM(name string) *fsm.FSM {
	f := fsm.NewFSM(
		sClosed,
		fsm.Events{
			{Name: openEvent, Src: []string{sClosed, sFailed}, Dst: sOpen},
			{Name: closeEvent, Src: []string{sOpen, sFailed}, Dst: sClosed},
			{Name: failEvent, Src: []string{sOpen}, Dst: sFailed},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				logs.LogBuild.Printf("FSM port %q state Src: %v, state Dst: %v", name, e.Src, e.Dst)
			},
			enterState(sFailed): func(e *fsm.Event) {
				logs.LogWarn.Printf("port %q failed", name)
			},
			"before_event": func(e *fsm.Event) {
				if e.Err != nil {
					e.Cancel(e.Err)
				}
			},
		},
	)
	return f
}
