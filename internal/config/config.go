// Package config holds the driver settings and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDevice         = "/dev/ttyUSB0"
	DefaultBaudRate       = 115200
	DefaultDelimiter      = "\r\n"
	DefaultPollInterval   = 1 * time.Second
	DefaultOutputMarker   = "+GPSRD"
	DefaultCommandTimeout = 10 * time.Second
	DefaultMQTTBroker     = "tcp://127.0.0.1:1883"
	DefaultMQTTClientID   = "go-a9g"
	DefaultMQTTPrefix     = "appliance/a9g"
)

type Filter struct {
	ProcessNoise     float64 `yaml:"process_noise"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
}

type MQTT struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Prefix   string `yaml:"prefix"`
}

type Websocket struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	Device       string        `yaml:"device"`
	BaudRate     int           `yaml:"baud_rate"`
	Delimiter    string        `yaml:"delimiter"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// IgnoreCommands are command-name substrings never tracked for responses.
	IgnoreCommands []string `yaml:"ignore_commands"`
	OutputMarker   string   `yaml:"output_marker"`
	// CommandTimeout resolves pending commands to TIMEOUT; 0 disables it.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// EmitOnChange publishes at.<command> only when the value changes.
	EmitOnChange bool      `yaml:"emit_on_change"`
	Filter       Filter    `yaml:"filter"`
	MQTT         MQTT      `yaml:"mqtt"`
	Websocket    Websocket `yaml:"websocket"`
}

func Default() *Config {
	return &Config{
		Device:         DefaultDevice,
		BaudRate:       DefaultBaudRate,
		Delimiter:      DefaultDelimiter,
		PollInterval:   DefaultPollInterval,
		IgnoreCommands: []string{"GPSRD"},
		OutputMarker:   DefaultOutputMarker,
		CommandTimeout: DefaultCommandTimeout,
		Filter: Filter{
			ProcessNoise:     1e-11,
			MeasurementNoise: 1e-5,
		},
		MQTT: MQTT{
			Broker:   DefaultMQTTBroker,
			ClientID: DefaultMQTTClientID,
			Prefix:   DefaultMQTTPrefix,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	conf := Default()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(strings.TrimSpace(c.Device)) <= 0 {
		errs = append(errs, errors.New("device is empty"))
	}
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid baud_rate %d", c.BaudRate))
	}
	if len(c.Delimiter) <= 0 {
		errs = append(errs, errors.New("delimiter is empty"))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval %s below 1s", c.PollInterval))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("negative command_timeout %s", c.CommandTimeout))
	}
	if c.Filter.ProcessNoise <= 0 || c.Filter.MeasurementNoise <= 0 {
		errs = append(errs, errors.New("filter noise must be positive"))
	}
	if c.MQTT.Enable && len(c.MQTT.Broker) <= 0 {
		errs = append(errs, errors.New("mqtt enabled without broker"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// OutputRate is the continuous output period in whole seconds, as sent to
// the modem.
func (c *Config) OutputRate() int {
	return int(math.Round(c.PollInterval.Seconds()))
}
