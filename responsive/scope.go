package main

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/itohio/responsive/pkg/adc"
	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/filter"
	"github.com/itohio/responsive/pkg/monitor"
	"github.com/itohio/responsive/pkg/publish"
	"github.com/itohio/responsive/pkg/sample"
	"github.com/itohio/responsive/pkg/scope"
)

// scopeRefreshInterval limits redraws; the monitor reports every sample.
const scopeRefreshInterval = 50 * time.Millisecond

// runWithScope runs the pipeline in the background and the scope window on the main
// thread. Closing the window stops the pipeline; a signal closes the window.
func runWithScope(cfg *config.Config, device adc.Device, f *filter.Filter, publisher publish.Publisher, mon *monitor.Monitor, logger *zap.Logger, sig <-chan os.Signal) error {
	application := app.NewWithID("com.itohio.responsive")

	window := application.NewWindow("Responsive Filter")
	window.Resize(fyne.NewSize(1200, 600))
	window.CenterOnScreen()

	scopeWidget := scope.New(cfg)
	window.SetContent(scopeWidget)

	// Set once the window is going away, fyne.Do must not be used afterwards
	var closing atomic.Bool
	redraw := func(samples []sample.Sample) {
		if closing.Load() {
			return
		}
		fyne.Do(func() {
			scopeWidget.UpdateData(samples)
		})
	}

	limiter := newThrottle(scopeRefreshInterval, time.Now)
	mon.OnUpdate(func(samples []sample.Sample) {
		if limiter.allow() {
			redraw(samples)
		}
	})

	stop := make(chan os.Signal, 1)
	requestStop := func(s os.Signal) {
		select {
		case stop <- s:
		default:
		}
	}

	window.SetOnClosed(func() {
		closing.Store(true)
		requestStop(os.Interrupt)
	})

	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		requestStop(s)
		if !closing.Swap(true) {
			fyne.Do(application.Quit)
		}
	}()

	result := make(chan error, 1)
	go func() {
		_, err := runPipeline(cfg, device, f, publisher, mon, logger, stop)
		// The limiter may have skipped the last window
		redraw(mon.Samples())
		result <- err
	}()

	window.ShowAndRun()
	return <-result
}

// throttle lets at most one event through per interval.
type throttle struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

func newThrottle(interval time.Duration, now func() time.Time) *throttle {
	return &throttle{
		interval: interval,
		now:      now,
	}
}

func (t *throttle) allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
