package pubsub

import (
	"sort"
	"sync"

	"github.com/dumacp/go-logs/pkg/logs"
	"github.com/google/uuid"
)

// Channels published by the driver.
const (
	ChannelState     = "state"
	ChannelDataset   = "dataset"
	ChannelData      = "data"
	ChannelRawLine   = "raw-line"
	ChannelError     = "error"
	ChannelResponses = "at.*"
)

const commandChannelPrefix = "at."

// CommandChannel returns the channel carrying the resolved value of a single command.
func CommandChannel(command string) string {
	return commandChannelPrefix + command
}

// Handler receives the payload published on a channel.
type Handler func(payload interface{})

type subscription struct {
	id      string
	handler Handler
}

// Bus is an in-process publish/subscribe table. Each channel holds an ordered
// list of handlers; delivery is synchronous in the publisher's goroutine.
type Bus struct {
	mux           sync.Mutex
	subscriptions map[string][]*subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subscriptions: make(map[string][]*subscription),
	}
}

// Subscribe appends handler to channel and returns the id used to remove it.
func (b *Bus) Subscribe(channel string, handler Handler) string {
	subs := &subscription{id: uuid.NewString(), handler: handler}
	b.mux.Lock()
	defer b.mux.Unlock()
	b.subscriptions[channel] = append(b.subscriptions[channel], subs)
	logs.LogBuild.Printf("subscription in channel -> %q (%s)", channel, subs.id)
	return subs.id
}

// Unsubscribe removes the handler registered with id. It reports whether
// the subscription existed.
func (b *Bus) Unsubscribe(channel, id string) bool {
	b.mux.Lock()
	defer b.mux.Unlock()
	list := b.subscriptions[channel]
	for i, v := range list {
		if v.id != id {
			continue
		}
		rest := make([]*subscription, 0, len(list)-1)
		rest = append(rest, list[:i]...)
		rest = append(rest, list[i+1:]...)
		if len(rest) == 0 {
			delete(b.subscriptions, channel)
		} else {
			b.subscriptions[channel] = rest
		}
		return true
	}
	return false
}

// UnsubscribeAll drops every handler of channel.
func (b *Bus) UnsubscribeAll(channel string) {
	b.mux.Lock()
	defer b.mux.Unlock()
	delete(b.subscriptions, channel)
}

// Publish invokes the handlers of channel in subscription order. Publishing
// on a channel without handlers is a no-op.
func (b *Bus) Publish(channel string, payload interface{}) {
	b.mux.Lock()
	list := b.subscriptions[channel]
	b.mux.Unlock()
	for _, v := range list {
		v.handler(payload)
	}
}

// Subscribers returns the number of handlers registered for channel.
func (b *Bus) Subscribers(channel string) int {
	b.mux.Lock()
	defer b.mux.Unlock()
	return len(b.subscriptions[channel])
}

// Channels lists the channels with at least one handler.
func (b *Bus) Channels() []string {
	b.mux.Lock()
	defer b.mux.Unlock()
	channels := make([]string, 0, len(b.subscriptions))
	for k := range b.subscriptions {
		channels = append(channels, k)
	}
	sort.Strings(channels)
	return channels
}
