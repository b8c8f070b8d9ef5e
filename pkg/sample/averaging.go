package sample

import (
	"math"

	"github.com/itohio/responsive/pkg/adc"
)

// Stage transforms a stream of raw samples.
type Stage func(in <-chan adc.RawSample) <-chan adc.RawSample

// NewAveragingStage creates a stage that averages blocks of windowSize consecutive
// raw samples into one, reducing noise before the filter sees it. Each output carries
// the timestamp of the newest sample in its block. A partial block is flushed when the
// input closes.
func NewAveragingStage(windowSize int, bufSize int) Stage {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan adc.RawSample) <-chan adc.RawSample {
		out := make(chan adc.RawSample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]adc.RawSample, 0, windowSize)
			for raw := range in {
				buffer = append(buffer, raw)
				if len(buffer) < windowSize {
					continue
				}
				out <- averageSamples(buffer)
				buffer = buffer[:0]
			}

			if len(buffer) > 0 {
				out <- averageSamples(buffer)
			}
		}()

		return out
	}
}

// averageSamples returns the rounded mean of samples, stamped with the last timestamp.
func averageSamples(samples []adc.RawSample) adc.RawSample {
	if len(samples) == 0 {
		return adc.RawSample{}
	}

	var sum int
	for _, s := range samples {
		sum += s.Value
	}

	return adc.RawSample{
		Timestamp: samples[len(samples)-1].Timestamp,
		Value:     int(math.Round(float64(sum) / float64(len(samples)))),
	}
}
