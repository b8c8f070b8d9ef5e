package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 0.01, cfg.Filter.SnapMultiplier)
	assert.True(t, cfg.Filter.SleepEnable)
	assert.True(t, cfg.Filter.EdgeSnapEnable)
	assert.Equal(t, 4.0, cfg.Filter.ActivityThreshold)
	assert.Equal(t, 1024, cfg.Filter.Resolution)
	assert.Equal(t, MapNone, cfg.Map.Mode)
	assert.Equal(t, float64(10), cfg.Measurement.WindowSeconds)
	assert.Equal(t, 0, cfg.Measurement.AverageSamples)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, 20*time.Millisecond, cfg.Mock.SampleRate)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
  baud_rate: 9600

filter:
  snap_multiplier: 0.05
  sleep_enable: false
  edge_snap_enable: false
  activity_threshold: 8
  resolution: 4096

map:
  mode: table
  in: [0, 100, 200]
  out: [0, 128, 255]

measurement:
  window_seconds: 5
  average_samples: 4

mqtt:
  broker: "tcp://localhost:1883"
  topic: "lab/pot"

mock:
  center: 2048
  amplitude: 1000
  period: 5s
  sample_rate: 10ms
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 0.05, cfg.Filter.SnapMultiplier)
	assert.False(t, cfg.Filter.SleepEnable)
	assert.False(t, cfg.Filter.EdgeSnapEnable)
	assert.Equal(t, 8.0, cfg.Filter.ActivityThreshold)
	assert.Equal(t, 4096, cfg.Filter.Resolution)
	assert.Equal(t, MapTable, cfg.Map.Mode)
	assert.Equal(t, []int{0, 100, 200}, cfg.Map.In)
	assert.Equal(t, []int{0, 128, 255}, cfg.Map.Out)
	assert.Equal(t, float64(5), cfg.Measurement.WindowSeconds)
	assert.Equal(t, 4, cfg.Measurement.AverageSamples)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "lab/pot", cfg.MQTT.Topic)
	assert.Equal(t, "responsive", cfg.MQTT.ClientID) // default
	assert.Equal(t, 2048, cfg.Mock.Center)
	assert.Equal(t, 5*time.Second, cfg.Mock.Period)
	assert.Equal(t, 10*time.Millisecond, cfg.Mock.SampleRate)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
filter:
  snap_multiplier: 0
  activity_threshold: 0
  resolution: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Zero snap multiplier is a valid setting and survives
	assert.Equal(t, 0.0, cfg.Filter.SnapMultiplier)
	assert.Equal(t, 4.0, cfg.Filter.ActivityThreshold) // default
	assert.Equal(t, 1024, cfg.Filter.Resolution)       // default
	assert.True(t, cfg.Filter.SleepEnable)             // default
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)   // default
	assert.Equal(t, MapNone, cfg.Map.Mode)             // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Map.Mode = MapTable
	cfg.Map.In = []int{3, 500, 1020}
	cfg.Map.Out = []int{0, 127, 255}

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, MapTable, loaded.Map.Mode)
	assert.Equal(t, []int{3, 500, 1020}, loaded.Map.In)
	assert.Equal(t, []int{0, 127, 255}, loaded.Map.Out)
}
