/*
Package driver runs an A9G modem: it correlates AT commands with their
responses, fuses the positioning output into a smoothed position and
publishes everything on an event bus.

All driver state lives in one actor. Transport reads, scheduler ticks and
calls on Driver are messages processed one at a time, so bus handlers run
inside that actor and must not call back into the Driver.
*/
package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/dumacp/go-a9g/internal/config"
	"github.com/dumacp/go-a9g/internal/nmea"
	"github.com/dumacp/go-a9g/internal/nmea/device"
	"github.com/dumacp/go-a9g/internal/pubsub"
)

const requestTimeout = 3 * time.Second

var ErrClosed = errors.New("driver closed")

// Intervals are the fixed polling periods. State and dataset emission follow
// the configured poll interval instead.
type Intervals struct {
	Responses time.Duration
	Signal    time.Duration
	Metadata  time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Responses: 1 * time.Second,
		Signal:    3 * time.Second,
		Metadata:  10 * time.Second,
	}
}

type options struct {
	opener    device.Opener
	parser    nmea.Parser
	now       func() time.Time
	intervals Intervals
	bus       *pubsub.Bus
}

type Option func(*options)

// WithOpener replaces the serial port opener.
func WithOpener(opener device.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

func WithParser(p nmea.Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithIntervals(i Intervals) Option {
	return func(o *options) {
		o.intervals = i
	}
}

// WithBus publishes on an existing bus.
func WithBus(bus *pubsub.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// Driver is the handle on one modem.
type Driver struct {
	system *actor.ActorSystem
	pid    *actor.PID
	bus    *pubsub.Bus
}

// New validates conf and spawns the driver actor. The port is not opened
// until Start.
func New(conf *config.Config, opts ...Option) (*Driver, error) {
	if conf == nil {
		conf = config.Default()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	o := &options{
		opener:    device.SerialOpener,
		parser:    nmea.NewParser(),
		now:       time.Now,
		intervals: DefaultIntervals(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bus == nil {
		o.bus = pubsub.New()
	}

	system := actor.NewActorSystem()
	act := newActor(conf, o.bus, o)
	pid, err := system.Root.SpawnNamed(actor.PropsFromFunc(act.Receive), "a9g")
	if err != nil {
		return nil, fmt.Errorf("spawn driver: %w", err)
	}
	return &Driver{
		system: system,
		pid:    pid,
		bus:    o.bus,
	}, nil
}

func (d *Driver) request(msg interface{}) (interface{}, error) {
	if d.pid == nil {
		return nil, ErrClosed
	}
	return d.system.Root.RequestFuture(d.pid, msg, requestTimeout).Result()
}

func (d *Driver) result(msg interface{}) error {
	res, err := d.request(msg)
	if err != nil {
		return err
	}
	r, ok := res.(*MsgResult)
	if !ok {
		return fmt.Errorf("unexpected response %T", res)
	}
	return r.Err
}

// Start opens the port, enables positioning at the poll interval and starts
// polling. It does nothing when the port is already open. Polling starts even
// when the port fails to open, so the failure keeps surfacing on the error
// channel until Stop.
func (d *Driver) Start() error {
	return d.result(&MsgStart{})
}

// Stop cancels polling and, when the port is open, stops positioning and
// closes it. Pending commands keep their values.
func (d *Driver) Stop() error {
	return d.result(&MsgStop{})
}

// Send writes command to the modem and tracks its response.
func (d *Driver) Send(command string) error {
	return d.result(&MsgSend{Command: command})
}

func (d *Driver) State() (State, error) {
	res, err := d.request(&MsgGetState{})
	if err != nil {
		return State{}, err
	}
	msg, ok := res.(*MsgState)
	if !ok {
		return State{}, fmt.Errorf("unexpected response %T", res)
	}
	return msg.State, nil
}

// Dataset returns the last fix received per sentence type.
func (d *Driver) Dataset() (map[string]nmea.Fix, error) {
	res, err := d.request(&MsgGetDataset{})
	if err != nil {
		return nil, err
	}
	msg, ok := res.(*MsgDataset)
	if !ok {
		return nil, fmt.Errorf("unexpected response %T", res)
	}
	return msg.Dataset, nil
}

// Responses returns the current value of every tracked command.
func (d *Driver) Responses() (map[string]string, error) {
	res, err := d.request(&MsgGetResponses{})
	if err != nil {
		return nil, err
	}
	msg, ok := res.(*MsgResponses)
	if !ok {
		return nil, fmt.Errorf("unexpected response %T", res)
	}
	return msg.Responses, nil
}

func (d *Driver) Bus() *pubsub.Bus {
	return d.bus
}

func (d *Driver) Subscribe(channel string, handler pubsub.Handler) string {
	return d.bus.Subscribe(channel, handler)
}

func (d *Driver) Unsubscribe(channel, id string) bool {
	return d.bus.Unsubscribe(channel, id)
}

// Close stops the driver and its actor. The Driver is unusable afterwards.
func (d *Driver) Close() error {
	if d.pid == nil {
		return nil
	}
	err := d.Stop()
	if errPoison := d.system.Root.PoisonFuture(d.pid).Wait(); errPoison != nil && err == nil {
		err = errPoison
	}
	d.pid = nil
	return err
}
