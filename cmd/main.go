package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dumacp/go-a9g/internal/config"
	"github.com/dumacp/go-a9g/internal/driver"
	"github.com/dumacp/go-a9g/internal/nmea/device"
	"github.com/dumacp/go-a9g/internal/pubsub"
	"github.com/dumacp/go-logs/pkg/logs"
)

var debug bool
var logstd bool
var list bool
var mqtt bool
var version bool

var configPath string
var portDevice string
var baudRate int
var poll time.Duration
var listen string

const (
	versionString = "1.0.0"
)

func init() {
	flag.BoolVar(&debug, "debug", false, "debug")
	flag.BoolVar(&logstd, "logStd", false, "logs in stderr")
	flag.BoolVar(&version, "version", false, "show version")
	flag.BoolVar(&list, "list", false, "list available serial ports and exit")
	flag.BoolVar(&mqtt, "mqtt", false, "forward state, dataset, errors and AT responses to the MQTT broker")
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&portDevice, "device", "", "serial device of the modem")
	flag.IntVar(&baudRate, "baudRate", 0, "baud rate of the modem port")
	flag.DurationVar(&poll, "poll", 0, "poll interval (continuous output rate and state emission)")
	flag.StringVar(&listen, "listen", "", "address to serve /ws and /state, e.g. \":4500\"")
}

func loadConfig() (*config.Config, error) {
	conf := config.Default()
	if len(configPath) > 0 {
		var err error
		if conf, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if len(portDevice) > 0 {
		conf.Device = portDevice
	}
	if baudRate > 0 {
		conf.BaudRate = baudRate
	}
	if poll > 0 {
		conf.PollInterval = poll
	}
	if len(listen) > 0 {
		conf.Websocket.Listen = listen
	}
	if mqtt {
		conf.MQTT.Enable = true
	}
	return conf, conf.Validate()
}

func listDevices() error {
	ports, err := device.ListDevices()
	if err != nil {
		return err
	}
	if len(ports) <= 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	fmt.Println("Available ports:")
	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("  %s\tUSB %s:%s %s %s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
			continue
		}
		fmt.Printf("  %s\n", p.Name)
	}
	return nil
}

func main() {

	flag.Parse()
	if version {
		fmt.Printf("version: %s\n", versionString)
		os.Exit(2)
	}
	if list {
		if err := listDevices(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	initLogs(debug, logstd)

	conf, err := loadConfig()
	if err != nil {
		logs.LogError.Fatalln(err)
	}
	logs.LogBuild.Printf("device: %s (%d), poll: %s", conf.Device, conf.BaudRate, conf.PollInterval)
	if _, err := os.Stat(conf.Device); err != nil {
		logs.LogWarn.Printf("device %q: %s", conf.Device, err)
	}

	drv, err := driver.New(conf)
	if err != nil {
		logs.LogError.Fatalln(err)
	}
	defer drv.Close()

	drv.Subscribe(pubsub.ChannelError, func(payload interface{}) {
		logs.LogError.Printf("driver error: %v", payload)
	})

	if conf.MQTT.Enable {
		publish, client, err := pubsub.NewMQTTPublisher(conf.MQTT.Broker, conf.MQTT.ClientID)
		if err != nil {
			logs.LogError.Printf("mqtt connect error: %s", err)
		} else {
			defer client.Disconnect(250)
			bridge := pubsub.NewBridge(drv.Bus(), conf.MQTT.Prefix, publish)
			bridge.Attach(
				pubsub.ChannelState,
				pubsub.ChannelDataset,
				pubsub.ChannelError,
				pubsub.ChannelResponses,
			)
			defer bridge.Detach()
			logs.LogInfo.Printf("mqtt bridge to %s, prefix %q", conf.MQTT.Broker, conf.MQTT.Prefix)
		}
	}

	if len(conf.Websocket.Listen) > 0 {
		b := newBroadcaster(func() (interface{}, error) {
			return drv.State()
		})
		drv.Subscribe(pubsub.ChannelState, b.publish)
		srv := &http.Server{Addr: conf.Websocket.Listen, Handler: b.routes()}
		go func() {
			logs.LogInfo.Printf("listening on %s", conf.Websocket.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logs.LogError.Println(err)
			}
		}()
		defer srv.Close()
	}

	if err := drv.Start(); err != nil {
		logs.LogError.Printf("start error: %s", err)
	}

	finish := make(chan os.Signal, 1)
	signal.Notify(finish, syscall.SIGINT)
	signal.Notify(finish, syscall.SIGTERM)

	v := <-finish
	logs.LogInfo.Println(v)
	if err := drv.Stop(); err != nil {
		logs.LogError.Println(err)
	}
}
