package scope

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/responsive/pkg/sample"
)

var (
	gridColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	rawColor      = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	filteredColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	sleepingColor = color.RGBA{R: 90, G: 110, B: 130, A: 255}  // Dimmed blue while the output is frozen
)

// plotArea is the part of the widget inside the axis margins.
type plotArea struct {
	x, y, width, height float32
}

func (p plotArea) project(b Bounds, ts time.Time, v float64) fyne.Position {
	x := p.x + float32(ts.Sub(b.XMin).Seconds()/b.XMax.Sub(b.XMin).Seconds())*p.width
	y := p.y + p.height - float32((v-b.YMin)/(b.YMax-b.YMin))*p.height
	return fyne.NewPos(x, y)
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	lastSize   fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the traces from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	b := r.scope.bounds
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	const (
		marginLeft   = float32(60)
		marginRight  = float32(20)
		marginTop    = float32(30)
		marginBottom = float32(40)
	)
	area := plotArea{
		x:      marginLeft,
		y:      marginTop,
		width:  size.Width - marginLeft - marginRight,
		height: size.Height - marginTop - marginBottom,
	}

	r.drawGrid(area, b)
	if len(samples) > 1 {
		r.drawRaw(area, b, samples)
		r.drawFiltered(area, b, samples)
	}
	r.drawLegend(area, samples)
}

// drawGrid draws the grid with value and time labels.
func (r *scopeRenderer) drawGrid(area plotArea, b Bounds) {
	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := area.y + float32(i)*area.height/float32(numHLines)
		r.addLine(fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.width, y), gridColor, 1)

		value := b.YMax - float64(i)*(b.YMax-b.YMin)/float64(numHLines)
		text := canvas.NewText(strconv.Itoa(int(math.Round(value))), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(area.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	numVLines := 10
	span := b.XMax.Sub(b.XMin)
	for i := 0; i < numVLines+1; i++ {
		x := area.x + float32(i)*area.width/float32(numVLines)
		r.addLine(fyne.NewPos(x, area.y), fyne.NewPos(x, area.y+area.height), gridColor, 1)

		offset := span * time.Duration(i) / time.Duration(numVLines)
		text := canvas.NewText(formatTime(offset), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, area.y+area.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawRaw draws the unfiltered input (thin orange).
func (r *scopeRenderer) drawRaw(area plotArea, b Bounds, samples []sample.Sample) {
	prev := area.project(b, samples[0].Timestamp, float64(samples[0].Raw))
	for _, s := range samples[1:] {
		next := area.project(b, s.Timestamp, float64(s.Raw))
		r.addLine(prev, next, rawColor, 1)
		prev = next
	}
}

// drawFiltered draws the filter output (thick light blue), dimmed while sleeping.
func (r *scopeRenderer) drawFiltered(area plotArea, b Bounds, samples []sample.Sample) {
	prev := area.project(b, samples[0].Timestamp, float64(samples[0].Value))
	for _, s := range samples[1:] {
		next := area.project(b, s.Timestamp, float64(s.Value))
		c := filteredColor
		if s.Sleeping {
			c = sleepingColor
		}
		r.addLine(prev, next, c, 2.5)
		prev = next
	}
}

// drawLegend labels the traces and shows the latest values.
func (r *scopeRenderer) drawLegend(area plotArea, samples []sample.Sample) {
	rawText, filteredText := "raw", "filtered"
	if len(samples) > 0 {
		last := samples[len(samples)-1]
		rawText += " " + strconv.Itoa(last.Raw)
		filteredText += " " + strconv.Itoa(last.Value)
		if last.Sleeping {
			filteredText += " (sleeping)"
		}
	}

	raw := canvas.NewText(rawText, rawColor)
	raw.TextSize = 12
	raw.Move(fyne.NewPos(area.x+10, 6))

	filtered := canvas.NewText(filteredText, filteredColor)
	filtered.TextSize = 12
	filtered.Move(fyne.NewPos(area.x+130, 6))

	r.objects = append(r.objects, raw, filtered)
}

func (r *scopeRenderer) addLine(from, to fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}
