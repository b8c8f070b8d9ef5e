package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mapping modes accepted by MapConfig.Mode.
const (
	MapNone   = "none"
	MapLinear = "linear"
	MapTable  = "table"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Filter      FilterConfig      `yaml:"filter"`
	Map         MapConfig         `yaml:"map"`
	Measurement MeasurementConfig `yaml:"measurement"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Mock        MockConfig        `yaml:"mock"`
	Log         LogConfig         `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// FilterConfig contains the responsive filter tuning.
type FilterConfig struct {
	SnapMultiplier    float64 `yaml:"snap_multiplier"`    // 0..1, clamped
	SleepEnable       bool    `yaml:"sleep_enable"`
	EdgeSnapEnable    bool    `yaml:"edge_snap_enable"`
	ActivityThreshold float64 `yaml:"activity_threshold"`
	Resolution        int     `yaml:"resolution"` // Number of distinct raw values, e.g. 1024 for 10 bits
}

// MapConfig describes the optional remapping applied to raw values before filtering.
type MapConfig struct {
	Mode   string `yaml:"mode"` // none, linear or table
	InMin  int    `yaml:"in_min"`
	InMax  int    `yaml:"in_max"`
	OutMin int    `yaml:"out_min"`
	OutMax int    `yaml:"out_max"`
	In     []int  `yaml:"in,flow"`
	Out    []int  `yaml:"out,flow"`
}

// MeasurementConfig contains sampling parameters.
type MeasurementConfig struct {
	WindowSeconds  float64 `yaml:"window_seconds"`  // History kept by the monitor
	AverageSamples int     `yaml:"average_samples"` // Raw samples averaged per filter step (0 = disabled, default)
}

// MQTTConfig contains the publisher settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Center     int           `yaml:"center"`      // Mid point of the simulated sweep (counts)
	Amplitude  int           `yaml:"amplitude"`   // Half span of the sweep (counts)
	NoiseLevel float64       `yaml:"noise_level"` // Peak noise (counts)
	Period     time.Duration `yaml:"period"`      // Full sweep period, 0 holds the center
	SampleRate time.Duration `yaml:"sample_rate"` // Sample interval
	Resolution int           `yaml:"resolution"`
}

// LogConfig contains logging parameters.
type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Filter: FilterConfig{
			SnapMultiplier:    0.01,
			SleepEnable:       true,
			EdgeSnapEnable:    true,
			ActivityThreshold: 4.0,
			Resolution:        1024,
		},
		Map: MapConfig{
			Mode: MapNone,
		},
		Measurement: MeasurementConfig{
			WindowSeconds:  10,
			AverageSamples: 0,
		},
		MQTT: MQTTConfig{
			Topic:    "sensors/responsive/value",
			ClientID: "responsive",
		},
		Mock: MockConfig{
			Center:     512,
			Amplitude:  400,
			NoiseLevel: 3,
			Period:     20 * time.Second,
			SampleRate: 20 * time.Millisecond,
			Resolution: 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills zero-valued fields that have no meaningful zero.
// SnapMultiplier is left alone: 0 is a valid (fully damped) setting.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Filter.ActivityThreshold == 0 {
		c.Filter.ActivityThreshold = def.Filter.ActivityThreshold
	}
	if c.Filter.Resolution == 0 {
		c.Filter.Resolution = def.Filter.Resolution
	}

	if c.Map.Mode == "" {
		c.Map.Mode = def.Map.Mode
	}

	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Resolution == 0 {
		c.Mock.Resolution = def.Mock.Resolution
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
