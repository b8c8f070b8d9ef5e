// Package filter implements a responsive smoothing filter for noisy analog readings.
//
// The filter is an exponential moving average whose coefficient is recomputed on every
// sample from the distance between the reading and the current estimate: small
// deviations are damped heavily, large ones pass almost unfiltered. Optionally the
// output freezes ("sleeps") once the tracked error settles below an activity threshold,
// and readings near either end of the range are exaggerated so the extremes stay
// reachable.
//
// A Filter is not safe for concurrent use. Each channel owns its own Filter.
package filter

import (
	"math"

	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/logging"
	"github.com/itohio/responsive/pkg/rangemap"
)

const (
	DefaultSnapMultiplier    = 0.01
	DefaultActivityThreshold = 4.0
	DefaultResolution        = 1024

	// errorSmoothing is the fixed coefficient of the error EMA used for sleep detection.
	errorSmoothing = 0.4
)

// Config holds the filter tuning.
type Config struct {
	SnapMultiplier    float64 // Scales the raw difference before the snap curve, clamped to [0, 1]
	SleepEnable       bool
	EdgeSnapEnable    bool
	ActivityThreshold float64
	Resolution        int // Number of distinct values; output stays in [0, Resolution-1]
}

// DefaultConfig returns the settings for a 10-bit input with sleep and edge snap on.
func DefaultConfig() Config {
	return Config{
		SnapMultiplier:    DefaultSnapMultiplier,
		SleepEnable:       true,
		EdgeSnapEnable:    true,
		ActivityThreshold: DefaultActivityThreshold,
		Resolution:        DefaultResolution,
	}
}

// FromConfig converts the YAML filter section.
func FromConfig(c config.FilterConfig) Config {
	return Config{
		SnapMultiplier:    c.SnapMultiplier,
		SleepEnable:       c.SleepEnable,
		EdgeSnapEnable:    c.EdgeSnapEnable,
		ActivityThreshold: c.ActivityThreshold,
		Resolution:        c.Resolution,
	}
}

func (c Config) normalize() Config {
	c.SnapMultiplier = clamp(c.SnapMultiplier, 0, 1)
	if c.Resolution <= 0 {
		c.Resolution = DefaultResolution
	}
	return c
}

// State is the mutable part of a filter.
type State struct {
	Smooth   float64 // Current estimate
	ErrorEMA float64 // Smoothed signed error, drives sleep
	Previous int     // Output before the last Feed
	Current  int     // Output of the last Feed
	Raw      int     // Last reading after remapping
	Sleeping bool
}

// Result is returned by every Feed.
type Result struct {
	Value   int
	Changed bool
	Raw     int
}

// Filter is a single channel of responsive smoothing.
type Filter struct {
	cfg    Config
	mapper rangemap.Mapper
	log    *zap.Logger
	state  State
}

// Option configures a Filter.
type Option func(*Filter)

// WithMapper remaps every reading before it is filtered.
func WithMapper(m rangemap.Mapper) Option {
	return func(f *Filter) {
		f.mapper = m
	}
}

// WithLogger routes the change trace to l at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filter) {
		f.log = l
	}
}

// New creates a filter with zeroed state.
func New(cfg Config, opts ...Option) *Filter {
	f := &Filter{
		cfg: cfg.normalize(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = logging.OrNop(f.log)
	f.logMapper()
	return f
}

// NewFromConfig builds a filter, including its input mapping, from the application config.
func NewFromConfig(cfg *config.Config, log *zap.Logger) (*Filter, error) {
	m, err := rangemap.New(cfg.Map)
	if err != nil {
		return nil, err
	}
	return New(FromConfig(cfg.Filter), WithMapper(m), WithLogger(log)), nil
}

// Feed processes one reading and returns the filtered output.
func (f *Filter) Feed(raw int) Result {
	if f.mapper != nil {
		raw = f.mapper.Map(raw)
	}
	f.state.Raw = raw
	f.state.Previous = f.state.Current
	f.state.Current = f.next(raw)

	res := Result{
		Value:   f.state.Current,
		Changed: f.state.Current != f.state.Previous,
		Raw:     raw,
	}
	if res.Changed {
		f.log.Debug("value changed", zap.Int("raw", raw), zap.Int("value", res.Value))
	}
	return res
}

func (f *Filter) next(raw int) int {
	cfg := &f.cfg
	s := &f.state
	threshold := cfg.ActivityThreshold

	if cfg.SleepEnable && cfg.EdgeSnapEnable {
		v := float64(raw)
		if v < threshold {
			raw = int(v*2 - threshold)
		} else if v > float64(cfg.Resolution)-threshold {
			raw = int(v*2 - float64(cfg.Resolution) + threshold)
		}
	}

	delta := float64(raw) - s.Smooth
	diff := math.Abs(delta)

	s.ErrorEMA += (delta - s.ErrorEMA) * errorSmoothing

	s.Sleeping = cfg.SleepEnable && math.Abs(s.ErrorEMA) < threshold
	if s.Sleeping {
		return int(s.Smooth)
	}

	snap := SnapCurve(diff * cfg.SnapMultiplier)

	s.Smooth += delta * snap
	if s.Smooth < 0 {
		s.Smooth = 0
	} else if hi := float64(cfg.Resolution - 1); s.Smooth > hi {
		s.Smooth = hi
	}

	return int(s.Smooth)
}

// SnapCurve maps a scaled difference to an EMA coefficient in [0, 1].
// It is 0 at x = 0, rises steeply, and saturates at 1 from x = 1.
func SnapCurve(x float64) float64 {
	y := 1.0 / (x + 1.0)
	y = (1.0 - y) * 2.0
	if y > 1.0 {
		return 1.0
	}
	return y
}

// Reconfigure replaces the tuning. The accumulated state is kept.
func (f *Filter) Reconfigure(cfg Config) {
	f.cfg = cfg.normalize()
}

// SetMapper replaces the input mapping; nil disables it.
func (f *Filter) SetMapper(m rangemap.Mapper) {
	f.mapper = m
	f.logMapper()
}

// Config returns the effective tuning, with SnapMultiplier already clamped.
func (f *Filter) Config() Config {
	return f.cfg
}

// State returns a copy of the current state.
func (f *Filter) State() State {
	return f.state
}

// Value returns the last output.
func (f *Filter) Value() int {
	return f.state.Current
}

// RawValue returns the last reading after remapping.
func (f *Filter) RawValue() int {
	return f.state.Raw
}

// HasChanged reports whether the last Feed changed the output.
func (f *Filter) HasChanged() bool {
	return f.state.Current != f.state.Previous
}

// IsSleeping reports whether the output is frozen.
func (f *Filter) IsSleeping() bool {
	return f.state.Sleeping
}

// MappedValue returns the last output passed through m, e.g. to scale a 10-bit
// reading down to a byte after filtering.
func (f *Filter) MappedValue(m rangemap.Mapper) int {
	return m.Map(f.state.Current)
}

func (f *Filter) logMapper() {
	if f.mapper == nil {
		return
	}
	if ce := f.log.Check(zap.DebugLevel, "input mapping"); ce != nil {
		switch m := f.mapper.(type) {
		case *rangemap.Table:
			in, out := m.Points()
			ce.Write(zap.Ints("in", in), zap.Ints("out", out), zap.Int("size", m.Len()))
		case *rangemap.Linear:
			ce.Write(zap.Int("in_min", m.InMin), zap.Int("in_max", m.InMax),
				zap.Int("out_min", m.OutMin), zap.Int("out_max", m.OutMax))
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
