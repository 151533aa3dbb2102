package driver

import (
	"errors"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/dumacp/go-a9g/internal/atcmd"
	"github.com/dumacp/go-a9g/internal/config"
	"github.com/dumacp/go-a9g/internal/demux"
	"github.com/dumacp/go-a9g/internal/fusion"
	"github.com/dumacp/go-a9g/internal/nmea"
	"github.com/dumacp/go-a9g/internal/nmea/device"
	"github.com/dumacp/go-a9g/internal/pubsub"
	"github.com/dumacp/go-a9g/internal/schedule"
	"github.com/dumacp/go-logs/pkg/logs"
)

const (
	taskState     = "state"
	taskDataset   = "dataset"
	taskResponses = "responses"
	taskSignal    = "signal"
	taskMetadata  = "metadata"
)

// State is the payload of the state channel.
type State struct {
	fusion.State
	Fix    *nmea.Fix `json:"fix,omitempty"`
	Signal string    `json:"signal,omitempty"`
	Device string    `json:"device"`
	Open   bool      `json:"open"`
}

type actordriver struct {
	conf       *config.Config
	intervals  Intervals
	now        func() time.Time
	bus        *pubsub.Bus
	dev        *device.Device
	correlator *atcmd.Correlator
	demux      *demux.Demux
	parser     nmea.Parser
	engine     *fusion.Engine
	tasks      *schedule.Set
	dataset    map[string]nmea.Fix
	lastFix    *nmea.Fix
	emitted    map[string]string
	// generation of the running task set; ticks from older sets are dropped
	generation int
}

func newActor(conf *config.Config, bus *pubsub.Bus, o *options) *actordriver {
	a := &actordriver{
		conf:      conf,
		intervals: o.intervals,
		now:       o.now,
		bus:       bus,
		parser:    o.parser,
		tasks:     schedule.New(),
		dataset:   make(map[string]nmea.Fix),
		emitted:   make(map[string]string),
	}
	a.dev = device.New(conf.Device, conf.BaudRate, o.opener)
	a.correlator = atcmd.New(a.dev, conf.Delimiter,
		atcmd.WithIgnore(conf.IgnoreCommands...),
		atcmd.WithClock(o.now))
	a.demux = demux.New(conf.Delimiter, conf.OutputMarker, a)
	a.engine = fusion.NewEngine(fusion.NewKalman(conf.Filter.ProcessNoise, conf.Filter.MeasurementNoise))
	return a
}

func (a *actordriver) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		logs.LogInfo.Printf("actor started \"%s\"", ctx.Self().Id)
	case *MsgStart:
		err := a.start(ctx)
		respond(ctx, &MsgResult{Err: err})
	case *MsgStop:
		err := a.stop()
		respond(ctx, &MsgResult{Err: err})
	case *MsgSend:
		err := a.send(msg.Command)
		respond(ctx, &MsgResult{Err: err})
	case *MsgGetState:
		respond(ctx, &MsgState{State: a.state()})
	case *MsgGetDataset:
		respond(ctx, &MsgDataset{Dataset: a.snapshotDataset()})
	case *MsgGetResponses:
		respond(ctx, &MsgResponses{Responses: a.correlator.Snapshot()})
	case *msgData:
		a.demux.Write(msg.data)
	case *msgReadErr:
		a.demux.Reset()
		a.publishError(msg.err)
	case *msgTick:
		if msg.generation != a.generation {
			break
		}
		a.tick(msg.task)
	case *actor.Stopping:
		logs.LogInfo.Printf("actor stopping \"%s\"", ctx.Self().Id)
		a.tasks.Stop()
		if err := a.dev.Close(); err != nil {
			logs.LogWarn.Println(err)
		}
	}
}

func respond(ctx actor.Context, msg interface{}) {
	if ctx.Sender() != nil {
		ctx.Respond(msg)
	}
}

func (a *actordriver) start(ctx actor.Context) error {
	if a.dev.IsOpen() {
		return nil
	}
	a.schedule(ctx)

	rootctx := ctx.ActorSystem().Root
	self := ctx.Self()
	onData := func(data []byte) {
		rootctx.Send(self, &msgData{data: data})
	}
	onErr := func(err error) {
		rootctx.Send(self, &msgReadErr{err: err})
	}
	a.demux.Reset()
	if err := a.dev.Open(onData, onErr); err != nil {
		a.publishError(err)
		return err
	}
	return errors.Join(
		a.send(atcmd.CmdEnableGPS),
		a.send(atcmd.CmdOutputRate(a.conf.OutputRate())),
	)
}

func (a *actordriver) stop() error {
	a.tasks.Stop()
	a.generation++
	if !a.dev.IsOpen() {
		return nil
	}
	a.send(atcmd.CmdOutputRate(0))
	a.send(atcmd.CmdDisableGPS)
	if err := a.dev.Close(); err != nil {
		a.publishError(err)
		return err
	}
	return nil
}

func (a *actordriver) schedule(ctx actor.Context) {
	rootctx := ctx.ActorSystem().Root
	self := ctx.Self()
	a.generation++
	generation := a.generation
	every := func(name string, interval time.Duration) {
		a.tasks.Start(schedule.Task{
			Name:     name,
			Interval: interval,
			Run: func() {
				rootctx.Send(self, &msgTick{task: name, generation: generation})
			},
		})
	}
	every(taskState, a.conf.PollInterval)
	every(taskDataset, a.conf.PollInterval)
	every(taskResponses, a.intervals.Responses)
	every(taskSignal, a.intervals.Signal)
	every(taskMetadata, a.intervals.Metadata)
}

func (a *actordriver) tick(task string) {
	switch task {
	case taskState:
		a.bus.Publish(pubsub.ChannelState, a.state())
	case taskDataset:
		a.bus.Publish(pubsub.ChannelDataset, a.snapshotDataset())
	case taskResponses:
		for _, v := range a.correlator.Expire(a.now(), a.conf.CommandTimeout) {
			logs.LogWarn.Printf("command %q timeout", v.Text)
		}
		a.bus.Publish(pubsub.ChannelResponses, a.correlator.Snapshot())
		for _, v := range a.correlator.Commands() {
			a.emitCommand(v)
		}
	case taskSignal:
		a.send(atcmd.CmdSignal)
	case taskMetadata:
		a.send(atcmd.CmdGPSMetadata)
	}
}

func (a *actordriver) send(command string) error {
	logs.LogBuild.Printf("send command %q", command)
	if err := a.correlator.Send(command); err != nil {
		a.publishError(err)
		return err
	}
	return nil
}

func (a *actordriver) publishError(err error) {
	logs.LogWarn.Println(err)
	a.bus.Publish(pubsub.ChannelError, err)
}

func (a *actordriver) emitCommand(cmd atcmd.Command) {
	if a.conf.EmitOnChange {
		if last, ok := a.emitted[cmd.Text]; ok && last == cmd.Value {
			return
		}
	}
	a.emitted[cmd.Text] = cmd.Value
	a.bus.Publish(pubsub.CommandChannel(cmd.Text), cmd.Value)
}

func (a *actordriver) state() State {
	s := State{
		State:  a.engine.State(),
		Device: a.dev.Name(),
		Open:   a.dev.IsOpen(),
	}
	if a.lastFix != nil {
		fix := *a.lastFix
		s.Fix = &fix
	}
	if v, ok := a.correlator.Lookup(atcmd.CmdSignal); ok && v.State == atcmd.Resolved {
		s.Signal = v.Value
	}
	return s
}

func (a *actordriver) snapshotDataset() map[string]nmea.Fix {
	snap := make(map[string]nmea.Fix, len(a.dataset))
	for k, v := range a.dataset {
		snap[k] = v
	}
	return snap
}

// demux.Handler

func (a *actordriver) Outstanding(line string) bool {
	return a.correlator.Outstanding(line)
}

func (a *actordriver) Response(command string, lines []string) {
	cmd, ok := a.correlator.Feed(command, lines)
	if !ok {
		return
	}
	logs.LogBuild.Printf("response %q -> %q", cmd.Text, cmd.Value)
	a.emitCommand(cmd)
}

func (a *actordriver) Unsolicited(line string) {
	fix, ok := a.parser.Parse(line)
	if !ok {
		logs.LogBuild.Printf("unsolicited line %q", line)
		return
	}
	a.dataset[fix.Type] = fix
	a.engine.Observe(fix.Lat, fix.Lon)
	if fix.HasPosition() {
		a.lastFix = &fix
	}
	a.bus.Publish(pubsub.ChannelData, fix)
}

func (a *actordriver) Raw(line string) {
	a.bus.Publish(pubsub.ChannelRawLine, line)
}
