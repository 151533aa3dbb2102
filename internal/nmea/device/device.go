/*
Package device owns the modem serial port: opening, closing, writing and a
read loop delivering raw chunks.
*/
package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dumacp/go-logs/pkg/logs"
	"github.com/looplab/fsm"
	"github.com/tarm/serial"
)

var (
	ErrNotOpen = errors.New("port not open")
	ErrOpen    = errors.New("open port failed")
	ErrWrite   = errors.New("write port failed")
	ErrClose   = errors.New("close port failed")
)

const (
	portReadTimeout = 3 * time.Second
	maxReadFails    = 6
	readSize        = 512
)

// Port is an open serial connection.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the named port at baud.
type Opener func(name string, baud int) (Port, error)

// SerialOpener opens a serial port with a read timeout, so the read loop
// wakes up regularly.
func SerialOpener(name string, baud int) (Port, error) {
	config := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: portReadTimeout,
	}
	port, err := serial.OpenPort(config)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Device is the single transport of a driver instance.
type Device struct {
	name   string
	baud   int
	opener Opener
	fsm    *fsm.FSM

	mux  sync.Mutex
	port Port
	quit chan int
}

// New creates a closed Device. A nil opener uses SerialOpener.
func New(name string, baud int, opener Opener) *Device {
	if opener == nil {
		opener = SerialOpener
	}
	return &Device{
		name:   name,
		baud:   baud,
		opener: opener,
		fsm:    initFSM(name),
	}
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) IsOpen() bool {
	return d.fsm.Is(sOpen)
}

// State returns the lifecycle state name.
func (d *Device) State() string {
	return d.fsm.Current()
}

// Open opens the port and starts the read loop. onData receives every chunk
// read; onErr receives the error that ended the loop. Both are called from the
// read goroutine. Opening an open Device does nothing.
func (d *Device) Open(onData func([]byte), onErr func(error)) error {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.fsm.Is(sOpen) {
		return nil
	}
	if d.port != nil {
		d.port.Close()
		d.port = nil
	}
	port, err := d.opener(d.name, d.baud)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, d.name, err)
	}
	if err := d.fsm.Event(openEvent); err != nil {
		port.Close()
		return fmt.Errorf("%w %s: %w", ErrOpen, d.name, err)
	}
	d.port = port
	d.quit = make(chan int)
	go d.listen(port, d.quit, onData, onErr)
	logs.LogInfo.Printf("port %q opened (%d)", d.name, d.baud)
	return nil
}

// Write writes p to the port.
func (d *Device) Write(p []byte) (int, error) {
	d.mux.Lock()
	port := d.port
	open := d.fsm.Is(sOpen)
	d.mux.Unlock()
	if !open || port == nil {
		return 0, ErrNotOpen
	}
	n, err := port.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w %s: %w", ErrWrite, d.name, err)
	}
	return n, nil
}

// Close stops the read loop and closes the port. Closing a closed Device
// does nothing.
func (d *Device) Close() error {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.fsm.Is(sClosed) {
		return nil
	}
	if d.quit != nil {
		close(d.quit)
		d.quit = nil
	}
	d.fsm.Event(closeEvent)
	port := d.port
	d.port = nil
	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrClose, d.name, err)
	}
	logs.LogInfo.Printf("port %q closed", d.name)
	return nil
}

func (d *Device) fail(quit chan int, err error) bool {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.quit != quit {
		// closed meanwhile
		return false
	}
	close(d.quit)
	d.quit = nil
	d.fsm.Event(failEvent)
	if d.port != nil {
		d.port.Close()
		d.port = nil
	}
	logs.LogError.Printf("port %q read failed: %s", d.name, err)
	return true
}

func (d *Device) listen(port Port, quit chan int, onData func([]byte), onErr func(error)) {
	countFail := 0
	buf := make([]byte, readSize)
	for {
		n, err := port.Read(buf)
		select {
		case <-quit:
			return
		default:
		}
		if n > 0 {
			countFail = 0
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if onData != nil {
				onData(chunk)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && n <= 0 {
			// read timeout
			time.Sleep(30 * time.Millisecond)
			continue
		}
		if errors.Is(err, io.EOF) {
			continue
		}
		countFail++
		logs.LogBuild.Printf("read port %q: %s", d.name, err)
		if countFail > maxReadFails {
			if d.fail(quit, err) && onErr != nil {
				onErr(err)
			}
			return
		}
		time.Sleep(30 * time.Millisecond)
	}
}
