package atcmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// State of a tracked command.
type State int

const (
	Pending State = iota
	Resolved
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return ""
	}
}

// Command is the last send of a command text and what the modem answered.
type Command struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
	State  State     `json:"state"`
	Value  string    `json:"value"`
}

// Correlator keeps at most one entry per command text. A new send of the same
// text replaces the previous entry.
type Correlator struct {
	w         io.Writer
	delimiter string
	ignore    []string
	policy    Policy
	now       func() time.Time
	commands  map[string]*Command
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithIgnore sets the command-name substrings that are never tracked.
func WithIgnore(substrings ...string) Option {
	return func(c *Correlator) {
		c.ignore = append([]string(nil), substrings...)
	}
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Correlator) {
		c.policy = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Correlator) {
		c.now = now
	}
}

// New creates a Correlator writing "command + delimiter" frames to w.
func New(w io.Writer, delimiter string, opts ...Option) *Correlator {
	c := &Correlator{
		w:         w,
		delimiter: delimiter,
		policy:    DefaultPolicy,
		now:       time.Now,
		commands:  make(map[string]*Command),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ignored reports whether command contains one of the ignore-list substrings.
func (c *Correlator) Ignored(command string) bool {
	for _, v := range c.ignore {
		if len(v) > 0 && strings.Contains(command, v) {
			return true
		}
	}
	return false
}

// Send writes command to the transport and starts a new Pending cycle for it.
// On write failure the entry is resolved to WriteError and the error returned.
func (c *Correlator) Send(command string) error {
	command = strings.TrimSpace(command)
	frame := []byte(command + c.delimiter)
	n, err := c.w.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		err = fmt.Errorf("send %q: %w", command, err)
	}
	if c.Ignored(command) {
		return err
	}
	entry := &Command{
		Text:   command,
		SentAt: c.now(),
		State:  Pending,
		Value:  NoResponse,
	}
	if err != nil {
		entry.State = Resolved
		entry.Value = WriteError
	}
	c.commands[command] = entry
	return err
}

// Outstanding reports whether line is the echo of a tracked command.
func (c *Correlator) Outstanding(line string) bool {
	_, ok := c.commands[strings.TrimSpace(line)]
	return ok
}

// Feed resolves command from the lines that followed its echo. It returns the
// updated entry, or false when the command is not tracked.
func (c *Correlator) Feed(command string, lines []string) (Command, bool) {
	entry, ok := c.commands[strings.TrimSpace(command)]
	if !ok {
		return Command{}, false
	}
	entry.State = Resolved
	entry.Value = c.policy.Resolve(lines)
	return *entry, true
}

// Expire resolves to Timeout every Pending entry sent more than timeout
// before now, and returns them. A timeout <= 0 disables expiration.
func (c *Correlator) Expire(now time.Time, timeout time.Duration) []Command {
	if timeout <= 0 {
		return nil
	}
	expired := make([]Command, 0)
	for _, v := range c.commands {
		if v.State != Pending || now.Sub(v.SentAt) < timeout {
			continue
		}
		v.State = Resolved
		v.Value = Timeout
		expired = append(expired, *v)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Text < expired[j].Text })
	return expired
}

// Lookup returns a copy of the entry for command.
func (c *Correlator) Lookup(command string) (Command, bool) {
	entry, ok := c.commands[strings.TrimSpace(command)]
	if !ok {
		return Command{}, false
	}
	return *entry, true
}

// Commands returns copies of every entry ordered by text.
func (c *Correlator) Commands() []Command {
	list := make([]Command, 0, len(c.commands))
	for _, v := range c.commands {
		list = append(list, *v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// Snapshot maps every tracked command text to its current value.
func (c *Correlator) Snapshot() map[string]string {
	snap := make(map[string]string, len(c.commands))
	for k, v := range c.commands {
		snap[k] = v.Value
	}
	return snap
}
