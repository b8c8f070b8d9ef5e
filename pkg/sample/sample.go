package sample

import (
	"time"

	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/adc"
	"github.com/itohio/responsive/pkg/filter"
	"github.com/itohio/responsive/pkg/logging"
)

// Sample is a filtered reading.
type Sample struct {
	Timestamp time.Time
	Raw       int  // Reading after remapping
	Value     int  // Filtered output
	Changed   bool // Value differs from the previous sample
	Sleeping  bool // Filter output was frozen for this sample
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan adc.RawSample) <-chan Sample

// NewConverter creates a converter that runs every raw sample through f.
// The converter goroutine is the only caller of f while the input is open.
func NewConverter(f *filter.Filter, bufSize int, log *zap.Logger) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}
	log = logging.OrNop(log)

	return func(in <-chan adc.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				s := convertSample(f, raw)

				select {
				case out <- s:
				case <-time.After(time.Second):
					log.Warn("converter output channel full, dropping sample", zap.Int("value", s.Value))
				}
			}
		}()

		return out
	}
}

// convertSample feeds one reading to the filter.
func convertSample(f *filter.Filter, raw adc.RawSample) Sample {
	res := f.Feed(raw.Value)
	return Sample{
		Timestamp: raw.Timestamp,
		Raw:       res.Raw,
		Value:     res.Value,
		Changed:   res.Changed,
		Sleeping:  f.IsSleeping(),
	}
}
