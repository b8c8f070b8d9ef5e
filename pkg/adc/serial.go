package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/logging"
)

const (
	// DefaultBaudRate is the baud rate used when none is configured.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads readings printed line by line by a microcontroller.
//
// Accepted line formats:
//
//	512                 (reading only, timestamped on arrival)
//	1234567890123,512   (unix microseconds, reading)
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	log      *zap.Logger

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	closed    bool
}

// NewSerial creates a Serial source with the specified port, baud rate, and buffer size.
func NewSerial(port string, baudRate int, bufSize int, log *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		log:      logging.OrNop(log).With(zap.String("port", port)),
		samples:  make(chan RawSample, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.closed {
		return fmt.Errorf("device closed")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readSamples(port)

	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, err)
		}
		d.conn = nil
	}

	d.connected = false
	d.closed = true

	return err
}

// Samples returns the channel for reading samples. It is closed once reading stops.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readSamples is the only sender on d.samples and closes it on exit.
func (d *Serial) readSamples(r io.Reader) {
	defer close(d.samples)
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("panic in serial reader", zap.Any("panic", rec))
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
				d.log.Warn("error reading from serial port", zap.Error(err))
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := parseLine(line, time.Now())
		if err != nil {
			d.log.Debug("failed to parse line", zap.String("line", line), zap.Error(err))
			continue
		}

		select {
		case d.samples <- sample:
		case <-d.ctx.Done():
			return
		default:
			d.log.Warn("samples channel full, dropping sample")
		}
	}
}

// parseLine parses a line from the MCU into a RawSample.
// Lines without a timestamp are stamped with now.
func parseLine(line string, now time.Time) (RawSample, error) {
	parts := strings.Split(line, ",")

	switch len(parts) {
	case 1:
		value, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid reading: %w", err)
		}
		return RawSample{Timestamp: now, Value: value}, nil

	case 2:
		timestampMicros, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid reading: %w", err)
		}
		return RawSample{
			Timestamp: time.UnixMicro(timestampMicros),
			Value:     value,
		}, nil

	default:
		return RawSample{}, fmt.Errorf("invalid line format: expected 1 or 2 comma-separated values, got %d", len(parts))
	}
}
