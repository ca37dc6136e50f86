// Package config loads handosc settings from a YAML file and HANDOSC_*
// environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"handosc/handtrack"
	"handosc/steering"
	"handosc/util"
)

const EnvPrefix = "HANDOSC_"

const (
	SourceOSC    = "osc"
	SourceReplay = "replay"
	SourceStatic = "static"

	SinkOSC = "osc"
	SinkBLE = "ble"
)

// Config holds the full handosc configuration.
type Config struct {
	TickRate    float64 `yaml:"tick_rate" env:"TICK_RATE"`
	StopOnError bool    `yaml:"stop_on_error" env:"STOP_ON_ERROR"`
	GUI         bool    `yaml:"gui" env:"GUI"`

	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Source   SourceConfig   `yaml:"source" envPrefix:"SOURCE_"`
	Sink     SinkConfig     `yaml:"sink" envPrefix:"SINK_"`
	Steering SteeringConfig `yaml:"steering" envPrefix:"STEERING_"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"FORMAT"` // text | json
}

// SourceConfig selects where snapshots come from.
type SourceConfig struct {
	Kind        string        `yaml:"kind" env:"KIND"`
	Listen      string        `yaml:"listen" env:"LISTEN"`
	HandTimeout time.Duration `yaml:"hand_timeout" env:"HAND_TIMEOUT"`
	ReplayPath  string        `yaml:"replay_path" env:"REPLAY_PATH"`
}

// SinkConfig selects where messages go.
type SinkConfig struct {
	Kind       string `yaml:"kind" env:"KIND"`
	Host       string `yaml:"host" env:"HOST"`
	Port       int    `yaml:"port" env:"PORT"`
	BLEAddress string `yaml:"ble_address" env:"BLE_ADDRESS"`
}

// SteeringConfig configures the stkbridge command.
type SteeringConfig struct {
	Listen         string        `yaml:"listen" env:"LISTEN"`
	Target         string        `yaml:"target" env:"TARGET"`
	Threshold      float64       `yaml:"threshold" env:"THRESHOLD"`
	Hand           string        `yaml:"hand" env:"HAND"`
	ReleaseTimeout time.Duration `yaml:"release_timeout" env:"RELEASE_TIMEOUT"`

	// Optional orientation and fire inputs; empty disables each one.
	YawAddress  string `yaml:"yaw_address" env:"YAW_ADDRESS"`
	RollAddress string `yaml:"roll_address" env:"ROLL_ADDRESS"`
	FireAddress string `yaml:"fire_address" env:"FIRE_ADDRESS"`
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		TickRate: 60,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Source: SourceConfig{
			Kind:        SourceOSC,
			Listen:      "127.0.0.1:6448",
			HandTimeout: handtrack.DefaultHandTimeout,
		},
		Sink: SinkConfig{
			Kind: SinkOSC,
			Host: "127.0.0.1",
			Port: 9000,
		},
		Steering: SteeringConfig{
			Listen:         "127.0.0.1:9000",
			Target:         "127.0.0.1:6006",
			Threshold:      0.4,
			Hand:           "right",
			ReleaseTimeout: 500 * time.Millisecond,
		},
	}
}

// Load reads path (optional, "" skips the file), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Sink.BLEAddress = strings.TrimSpace(cfg.Sink.BLEAddress)
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be > 0")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.Source.Kind {
	case SourceOSC:
		if _, _, err := net.SplitHostPort(c.Source.Listen); err != nil {
			return fmt.Errorf("source.listen: %w", err)
		}
		if c.Source.HandTimeout <= 0 {
			return fmt.Errorf("source.hand_timeout must be > 0")
		}
	case SourceReplay:
		if c.Source.ReplayPath == "" {
			return fmt.Errorf("source.replay_path is required for replay source")
		}
	case SourceStatic:
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	switch c.Sink.Kind {
	case SinkOSC:
		if c.Sink.Host == "" {
			return fmt.Errorf("sink.host is required")
		}
		if c.Sink.Port <= 0 || c.Sink.Port > 65535 {
			return fmt.Errorf("sink.port out of range: %d", c.Sink.Port)
		}
	case SinkBLE:
		if !util.IsDeviceID(c.Sink.BLEAddress) {
			return fmt.Errorf("sink.ble_address %q is not a device address", c.Sink.BLEAddress)
		}
	default:
		return fmt.Errorf("unknown sink.kind %q", c.Sink.Kind)
	}

	if c.Steering.Threshold <= 0 || c.Steering.Threshold >= 1 {
		return fmt.Errorf("steering.threshold must be in (0, 1)")
	}
	if c.Steering.ReleaseTimeout < steering.MinReleaseTimeout {
		return fmt.Errorf("steering.release_timeout must be at least %s", steering.MinReleaseTimeout)
	}
	for name, addr := range map[string]string{
		"yaw_address":  c.Steering.YawAddress,
		"roll_address": c.Steering.RollAddress,
		"fire_address": c.Steering.FireAddress,
	} {
		if addr != "" && !strings.HasPrefix(addr, "/") {
			return fmt.Errorf("steering.%s %q must start with /", name, addr)
		}
	}
	if _, err := handtrack.ParseChirality(c.Steering.Hand); err != nil {
		return fmt.Errorf("steering.hand: %w", err)
	}
	return nil
}
