// Package rangemap remaps raw readings into a target range, either with a single
// linear formula or by interpolating through a table of calibration points.
package rangemap

import (
	"errors"
	"fmt"
)

var (
	ErrTooFewPoints   = errors.New("at least 2 points are required")
	ErrLengthMismatch = errors.New("in and out tables differ in length")
	ErrNotIncreasing  = errors.New("input points must be strictly increasing")
	ErrEmptyRange     = errors.New("input range is empty")
	ErrUnknownMode    = errors.New("unknown map mode")
)

// ConfigurationError reports a mapping that cannot be constructed.
type ConfigurationError struct {
	Index int // offending point, -1 when not point specific
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("rangemap: point %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("rangemap: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Mapper converts a raw value into the target range.
type Mapper interface {
	Map(val int) int
}

var (
	_ Mapper = (*Linear)(nil)
	_ Mapper = (*Table)(nil)
)

// Linear is a proportional remap from [InMin, InMax] to [OutMin, OutMax].
// Values outside the input range extrapolate.
type Linear struct {
	InMin, InMax   int
	OutMin, OutMax int
}

// NewLinear validates and returns a linear mapper.
func NewLinear(inMin, inMax, outMin, outMax int) (*Linear, error) {
	if inMin == inMax {
		return nil, &ConfigurationError{Index: -1, Err: ErrEmptyRange}
	}
	return &Linear{InMin: inMin, InMax: inMax, OutMin: outMin, OutMax: outMax}, nil
}

// Map uses integer arithmetic; the division truncates toward zero.
func (l *Linear) Map(val int) int {
	return (val-l.InMin)*(l.OutMax-l.OutMin)/(l.InMax-l.InMin) + l.OutMin
}

// Table interpolates through ordered (in, out) breakpoints.
// Values beyond the first or last breakpoint clamp to its output.
type Table struct {
	in  []int
	out []int
}

// NewTable copies in and out and validates them.
func NewTable(in, out []int) (*Table, error) {
	if len(in) != len(out) {
		return nil, &ConfigurationError{Index: -1, Err: ErrLengthMismatch}
	}
	if len(in) < 2 {
		return nil, &ConfigurationError{Index: -1, Err: ErrTooFewPoints}
	}
	for i := 1; i < len(in); i++ {
		if in[i] <= in[i-1] {
			return nil, &ConfigurationError{Index: i, Err: ErrNotIncreasing}
		}
	}

	t := &Table{
		in:  make([]int, len(in)),
		out: make([]int, len(out)),
	}
	copy(t.in, in)
	copy(t.out, out)
	return t, nil
}

// Map returns the interpolated output for val.
// Exact breakpoint hits return the stored output without rounding error.
func (t *Table) Map(val int) int {
	n := len(t.in)
	if val <= t.in[0] {
		return t.out[0]
	}
	if val >= t.in[n-1] {
		return t.out[n-1]
	}

	// in[0] < val < in[n-1], so the scan stops inside the table
	pos := 1
	for val > t.in[pos] {
		pos++
	}
	if val == t.in[pos] {
		return t.out[pos]
	}

	return (val-t.in[pos-1])*(t.out[pos]-t.out[pos-1])/(t.in[pos]-t.in[pos-1]) + t.out[pos-1]
}

// Len returns the number of breakpoints.
func (t *Table) Len() int {
	return len(t.in)
}

// Points returns copies of the input and output breakpoints.
func (t *Table) Points() (in, out []int) {
	in = make([]int, len(t.in))
	out = make([]int, len(t.out))
	copy(in, t.in)
	copy(out, t.out)
	return in, out
}
