package pubsub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dumacp/go-logs/pkg/logs"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultClientID = "go-a9g"
	DefaultBroker   = "tcp://127.0.0.1:1883"
	DefaultPrefix   = "appliance/a9g"
)

// PublishFunc delivers an encoded payload to a remote topic.
type PublishFunc func(topic string, payload []byte) error

// Bridge forwards bus channels to a remote broker as JSON documents on
// "<prefix>/<channel>".
type Bridge struct {
	bus     *Bus
	prefix  string
	publish PublishFunc
	subs    map[string]string
}

// NewBridge creates a bridge that is not attached to any channel yet.
func NewBridge(bus *Bus, prefix string, publish PublishFunc) *Bridge {
	return &Bridge{
		bus:     bus,
		prefix:  strings.TrimSuffix(prefix, "/"),
		publish: publish,
		subs:    make(map[string]string),
	}
}

// Topic returns the remote topic for channel.
func (br *Bridge) Topic(channel string) string {
	if len(br.prefix) <= 0 {
		return channel
	}
	return fmt.Sprintf("%s/%s", br.prefix, channel)
}

// Attach subscribes the bridge to channels. Attaching an already attached
// channel is a no-op.
func (br *Bridge) Attach(channels ...string) {
	for _, channel := range channels {
		if _, ok := br.subs[channel]; ok {
			continue
		}
		topic := br.Topic(channel)
		br.subs[channel] = br.bus.Subscribe(channel, func(payload interface{}) {
			data, err := encode(payload)
			if err != nil {
				logs.LogWarn.Printf("bridge encode error in channel %q: %s", channel, err)
				return
			}
			if err := br.publish(topic, data); err != nil {
				logs.LogError.Printf("bridge publish error in topic %q: %s", topic, err)
			}
		})
	}
}

// Detach removes every bridge subscription.
func (br *Bridge) Detach() {
	for channel, id := range br.subs {
		br.bus.Unsubscribe(channel, id)
		delete(br.subs, channel)
	}
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case error:
		return json.Marshal(map[string]string{"error": v.Error()})
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// NewMQTTPublisher connects to broker and returns a PublishFunc backed by the
// client, plus the client so the caller can disconnect it.
func NewMQTTPublisher(broker, id string) (PublishFunc, mqtt.Client, error) {
	if len(broker) <= 0 {
		broker = DefaultBroker
	}
	if len(id) <= 0 {
		id = DefaultClientID
	}
	c := client(broker, id)
	if err := connect(c); err != nil {
		return nil, nil, err
	}
	publish := func(topic string, payload []byte) error {
		tk := c.Publish(topic, 0, false, payload)
		if !tk.WaitTimeout(3 * time.Second) {
			if tk.Error() != nil {
				return tk.Error()
			}
			return fmt.Errorf("timeout publishing in topic %q", topic)
		}
		return tk.Error()
	}
	return publish, c, nil
}

func client(broker, id string) mqtt.Client {
	opt := mqtt.NewClientOptions().AddBroker(broker)
	opt.SetAutoReconnect(true)
	opt.SetClientID(fmt.Sprintf("%s-%d", id, time.Now().Unix()))
	opt.SetKeepAlive(30 * time.Second)
	opt.SetConnectRetryInterval(10 * time.Second)
	return mqtt.NewClient(opt)
}

func connect(c mqtt.Client) error {
	tk := c.Connect()
	if !tk.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connect wait error")
	}
	if err := tk.Error(); err != nil {
		return err
	}
	return nil
}
