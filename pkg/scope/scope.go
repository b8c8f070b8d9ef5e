// Package scope provides a Fyne widget that plots the raw input against the filtered
// output over the monitor window.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/sample"
)

// DefaultMaxDisplayPoints limits the number of points drawn per trace.
const DefaultMaxDisplayPoints = 1000

// Bounds is the visible data range.
type Bounds struct {
	YMin, YMax float64
	XMin, XMax time.Time
}

// ScopeWidget is a custom Fyne widget that displays oscilloscope-style traces.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	// Data (protected by mu)
	mu             sync.RWMutex
	displaySamples []sample.Sample
	bounds         Bounds

	maxDisplayPoints int
}

// New creates a new ScopeWidget showing the measurement window from cfg.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		window:           time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
		displaySamples:   make([]sample.Sample, 0, DefaultMaxDisplayPoints),
		maxDisplayPoints: DefaultMaxDisplayPoints,
	}
	s.bounds = autoScale(nil, s.window, time.Now())
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData replaces the plotted window.
// This should be called on the Fyne main thread, e.g. through fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample) {
	s.mu.Lock()
	s.displaySamples = sample.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.bounds = autoScale(s.displaySamples, s.window, time.Now())
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	s.Refresh()
}

// autoScale fits both traces with a 10% margin. The time axis spans at least window.
func autoScale(samples []sample.Sample, window time.Duration, now time.Time) Bounds {
	if len(samples) == 0 {
		return Bounds{YMin: 0, YMax: 1, XMin: now, XMax: now.Add(window)}
	}

	yMin := float64(min(samples[0].Raw, samples[0].Value))
	yMax := float64(max(samples[0].Raw, samples[0].Value))
	for _, s := range samples[1:] {
		yMin = min(yMin, float64(s.Raw), float64(s.Value))
		yMax = max(yMax, float64(s.Raw), float64(s.Value))
	}

	span := yMax - yMin
	if span == 0 {
		span = 1
	}
	margin := span * 0.1

	b := Bounds{
		YMin: yMin - margin,
		YMax: yMax + margin,
		XMin: samples[0].Timestamp,
		XMax: samples[len(samples)-1].Timestamp,
	}
	if b.XMax.Sub(b.XMin) < window {
		b.XMax = b.XMin.Add(window)
	}
	return b
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
