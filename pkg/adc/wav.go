package adc

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/logging"
)

// wavChunkSize is the number of PCM values decoded per read.
const wavChunkSize = 4096

// WAV replays a capture recorded as a PCM WAV file. Only the first channel is used.
// Signed PCM is shifted to unsigned counts so that silence reads as mid scale, the
// way a bipolar signal looks on a unipolar ADC.
type WAV struct {
	path     string
	realTime bool
	log      *zap.Logger

	samples   chan RawSample
	mu        sync.RWMutex
	file      *os.File
	stop      chan struct{}
	done      chan struct{}
	connected bool
	closed    bool

	bitDepth   int
	sampleRate int
}

// NewWAV creates a WAV replay source. With realTime set, samples are paced at the
// file's sample rate; otherwise they are delivered as fast as they are consumed.
func NewWAV(path string, realTime bool, log *zap.Logger) *WAV {
	return &WAV{
		path:     path,
		realTime: realTime,
		log:      logging.OrNop(log).With(zap.String("file", path)),
		samples:  make(chan RawSample, DefaultBufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Connect opens the file, validates the header and starts the replay.
func (w *WAV) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.connected {
		return fmt.Errorf("already connected")
	}
	if w.closed {
		return fmt.Errorf("device closed")
	}

	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return fmt.Errorf("%s is not a valid WAV file", w.path)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	w.file = f
	w.bitDepth = int(dec.BitDepth)
	w.sampleRate = int(dec.SampleRate)
	w.connected = true

	w.log.Info("replaying capture",
		zap.Int("bit_depth", w.bitDepth),
		zap.Int("sample_rate", w.sampleRate),
		zap.Int("channels", int(dec.NumChans)))

	go w.replay(dec, int(dec.NumChans))

	return nil
}

// Close stops the replay and releases the file.
func (w *WAV) Close() error {
	w.mu.Lock()
	if !w.connected {
		w.mu.Unlock()
		return nil
	}
	w.connected = false
	w.closed = true
	close(w.stop)
	w.mu.Unlock()

	<-w.done

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return nil
}

// Samples returns the replayed readings. The channel is closed at end of file or Close.
func (w *WAV) Samples() <-chan RawSample {
	return w.samples
}

// IsConnected returns whether a replay has been started and not closed.
func (w *WAV) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Resolution returns the number of distinct values in the replayed stream.
func (w *WAV) Resolution() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return 1 << w.bitDepth
}

func (w *WAV) replay(dec *wav.Decoder, numChans int) {
	defer close(w.done)
	defer close(w.samples)

	if numChans < 1 {
		numChans = 1
	}

	offset := 0
	if w.bitDepth > 8 {
		offset = 1 << (w.bitDepth - 1)
	}

	var period time.Duration
	if w.sampleRate > 0 {
		period = time.Second / time.Duration(w.sampleRate)
	}

	var ticker *time.Ticker
	if w.realTime && period > 0 {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	buf := &audio.IntBuffer{
		Format: dec.Format(),
		Data:   make([]int, wavChunkSize*numChans),
	}

	start := time.Now()
	index := 0
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			w.log.Debug("end of capture", zap.Error(err))
			return
		}
		if n == 0 {
			w.log.Debug("end of capture", zap.Int("samples", index))
			return
		}

		for i := 0; i+numChans <= n; i += numChans {
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-w.stop:
					return
				}
			}

			sample := RawSample{
				Timestamp: start.Add(time.Duration(index) * period),
				Value:     buf.Data[i] + offset,
			}
			index++

			select {
			case w.samples <- sample:
			case <-w.stop:
				return
			}
		}
	}
}
