package rangemap

import (
	"fmt"

	"github.com/itohio/responsive/pkg/config"
)

// FromSweep builds a Table from readings recorded while a control was turned slowly
// from its minimum to its maximum. Readings that do not advance past the previous
// kept reading (noise, pauses) are dropped. Outputs are spread evenly over [0, outMax].
func FromSweep(sweep []int, outMax int) (*Table, error) {
	in := make([]int, 0, len(sweep))
	for _, v := range sweep {
		if len(in) > 0 && v <= in[len(in)-1] {
			continue
		}
		in = append(in, v)
	}
	if len(in) < 2 {
		return nil, &ConfigurationError{Index: -1, Err: ErrTooFewPoints}
	}

	out := make([]int, len(in))
	last := len(in) - 1
	for i := range out {
		out[i] = i * outMax / last
	}

	return NewTable(in, out)
}

// New builds the mapper described by cfg. Mode "none" (or empty) yields a nil Mapper.
func New(cfg config.MapConfig) (Mapper, error) {
	switch cfg.Mode {
	case "", config.MapNone:
		return nil, nil
	case config.MapLinear:
		l, err := NewLinear(cfg.InMin, cfg.InMax, cfg.OutMin, cfg.OutMax)
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.MapTable:
		t, err := NewTable(cfg.In, cfg.Out)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, &ConfigurationError{Index: -1, Err: fmt.Errorf("%w %q", ErrUnknownMode, cfg.Mode)}
	}
}
