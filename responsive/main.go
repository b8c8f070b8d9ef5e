// Command responsive reads an analog control, smooths it with the responsive filter
// and reports (and optionally publishes) every change of the filtered value.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/adc"
	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/filter"
	"github.com/itohio/responsive/pkg/logging"
	"github.com/itohio/responsive/pkg/monitor"
	"github.com/itohio/responsive/pkg/publish"
	"github.com/itohio/responsive/pkg/rangemap"
	"github.com/itohio/responsive/pkg/sample"
)

func main() {
	var (
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		mockFlag           = flag.Bool("mock", false, "Use simulated potentiometer instead of serial port")
		wavFlag            = flag.String("wav", "", "Replay a recorded WAV capture instead of reading the serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of raw samples to average (0 = disabled, overrides config)")
		brokerFlag         = flag.String("broker", "", "MQTT broker address override (e.g., tcp://localhost:1883)")
		debugFlag          = flag.Bool("debug", false, "Enable debug logging")
		calibrateFlag      = flag.String("calibrate", "", "Build a mapping table from a recorded sweep (one reading per line) and exit")
		calibrateOutFlag   = flag.Int("calibrate-out", -1, "Maximum output of the calibrated table (default resolution-1)")
		scopeFlag          = flag.Bool("scope", false, "Plot raw and filtered values in a window")
		listPortsFlag      = flag.Bool("list-ports", false, "List available serial ports and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}
	if *brokerFlag != "" {
		cfg.MQTT.Broker = *brokerFlag
	}
	if *debugFlag {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if *listPortsFlag {
		ports, err := adc.Ports()
		if err != nil {
			logger.Fatal("failed to list serial ports", zap.Error(err))
		}
		printPorts(os.Stdout, ports)
		return
	}

	if *calibrateFlag != "" {
		if err := calibrate(cfg, *configFlag, *calibrateFlag, *calibrateOutFlag, logger); err != nil {
			logger.Fatal("calibration failed", zap.Error(err))
		}
		return
	}

	if err := run(cfg, *mockFlag, *wavFlag, *scopeFlag, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

// run opens the configured source and processes it until it is exhausted or the
// process is interrupted.
func run(cfg *config.Config, useMock bool, wavPath string, showScope bool, logger *zap.Logger) error {
	device := openDevice(cfg, useMock, wavPath, logger)
	if err := device.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// A replayed capture knows its own bit depth
	if r, ok := device.(interface{ Resolution() int }); ok {
		cfg.Filter.Resolution = r.Resolution()
	}

	f, err := filter.NewFromConfig(cfg, logger.Named("filter"))
	if err != nil {
		device.Close()
		return fmt.Errorf("create filter: %w", err)
	}

	var publisher publish.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := publish.NewMQTT(cfg.MQTT)
		if err != nil {
			device.Close()
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("publishing to broker", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	mon := monitor.New(cfg)
	if showScope {
		return runWithScope(cfg, device, f, publisher, mon, logger, sigCh)
	}

	_, err = runPipeline(cfg, device, f, publisher, mon, logger, sigCh)
	return err
}

// printPorts writes one serial port name per line.
func printPorts(w io.Writer, ports []adc.Port) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Fprintln(w, p.Name)
	}
}

func openDevice(cfg *config.Config, useMock bool, wavPath string, logger *zap.Logger) adc.Device {
	switch {
	case wavPath != "":
		logger.Info("replaying capture", zap.String("path", wavPath))
		return adc.NewWAV(wavPath, true, logger.Named("wav"))
	case useMock:
		logger.Info("using simulated potentiometer")
		return adc.NewMock(&cfg.Mock)
	default:
		logger.Info("opening serial port", zap.String("port", cfg.Serial.Port), zap.Int("baud", cfg.Serial.BaudRate))
		return adc.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, adc.DefaultBufferSize, logger.Named("serial"))
	}
}

// runPipeline wires device -> averaging -> filter -> mon and blocks until the
// device runs dry or a signal arrives. The device is always closed on return.
func runPipeline(cfg *config.Config, device adc.Device, f *filter.Filter, publisher publish.Publisher, mon *monitor.Monitor, logger *zap.Logger, sig <-chan os.Signal) (monitor.Stats, error) {
	raw := device.Samples()
	if cfg.Measurement.AverageSamples > 1 {
		raw = sample.NewAveragingStage(cfg.Measurement.AverageSamples, 0)(raw)
	}
	samples := sample.NewConverter(f, 0, logger.Named("converter"))(raw)

	mon.OnChange(func(s sample.Sample) {
		logger.Info("value", zap.Int("value", s.Value), zap.Int("raw", s.Raw))
		if publisher == nil {
			return
		}
		if err := publisher.Publish(s); err != nil {
			logger.Warn("failed to publish value", zap.Error(err))
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mon.ProcessSamples(samples)
	}()

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.Stringer("signal", s))
	case <-done:
		logger.Info("source exhausted")
	}

	// Closing the device closes its channel, which drains the rest of the chain
	closeErr := device.Close()
	<-done

	stats := mon.Stats()
	fields := []zap.Field{
		zap.Int("samples", stats.Samples),
		zap.Int("changes", stats.Changes),
		zap.Int("sleeping", stats.Sleeping),
		zap.Int("min", stats.Min),
		zap.Int("max", stats.Max),
		zap.Int("last", stats.Last.Value),
	}
	if status, ok := publisher.(publish.ConnectionStatus); ok {
		fields = append(fields, zap.Bool("mqtt_connected", status.IsConnected()))
	}
	logger.Info("final stats", fields...)

	if closeErr != nil {
		return stats, fmt.Errorf("close device: %w", closeErr)
	}
	return stats, nil
}

// calibrate builds a table mapping from a recorded sweep and stores it in the config file.
func calibrate(cfg *config.Config, configPath, sweepPath string, outMax int, logger *zap.Logger) error {
	fh, err := os.Open(sweepPath)
	if err != nil {
		return fmt.Errorf("open sweep: %w", err)
	}
	defer fh.Close()

	sweep, err := readSweep(fh)
	if err != nil {
		return err
	}

	if outMax < 0 {
		outMax = cfg.Filter.Resolution - 1
	}

	table, err := rangemap.FromSweep(sweep, outMax)
	if err != nil {
		return fmt.Errorf("build table: %w", err)
	}

	in, out := table.Points()
	cfg.Map = config.MapConfig{
		Mode: config.MapTable,
		In:   in,
		Out:  out,
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	logger.Info("calibration saved",
		zap.String("config", configPath),
		zap.Int("readings", len(sweep)),
		zap.Int("points", table.Len()),
		zap.Int("out_max", outMax),
	)
	return nil
}

// readSweep parses one integer reading per line. Blank lines and lines starting
// with # are ignored. A "timestamp,value" line uses the value.
func readSweep(r io.Reader) ([]int, error) {
	var sweep []int

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.LastIndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}

		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid reading %q: %w", lineNo, line, err)
		}
		sweep = append(sweep, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sweep: %w", err)
	}

	return sweep, nil
}
