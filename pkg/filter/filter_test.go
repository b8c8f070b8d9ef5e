package filter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/rangemap"
)

func awakeConfig(snap float64) Config {
	return Config{
		SnapMultiplier:    snap,
		SleepEnable:       false,
		EdgeSnapEnable:    false,
		ActivityThreshold: DefaultActivityThreshold,
		Resolution:        DefaultResolution,
	}
}

func TestSnapCurve(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"zero", 0, 0},
		{"half", 0.5, 2.0 / 3.0},
		{"knee", 1, 1},
		{"large", 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SnapCurve(tt.x), 1e-9)
		})
	}
}

func TestSnapCurve_Monotonic(t *testing.T) {
	prev := SnapCurve(0)
	for x := 0.001; x < 50; x += 0.001 {
		y := SnapCurve(x)
		require.GreaterOrEqual(t, y, prev, "x=%f", x)
		require.LessOrEqual(t, y, 1.0)
		prev = y
	}
	assert.Equal(t, 1.0, prev)
}

func TestNew_ClampsSnapMultiplier(t *testing.T) {
	cfg := DefaultConfig()

	cfg.SnapMultiplier = 5.0
	assert.Equal(t, 1.0, New(cfg).Config().SnapMultiplier)

	cfg.SnapMultiplier = -1.0
	assert.Equal(t, 0.0, New(cfg).Config().SnapMultiplier)

	cfg.SnapMultiplier = 0.25
	assert.Equal(t, 0.25, New(cfg).Config().SnapMultiplier)
}

func TestNew_DefaultsResolution(t *testing.T) {
	f := New(Config{SnapMultiplier: 0.5})
	assert.Equal(t, DefaultResolution, f.Config().Resolution)

	for _, raw := range []int{0, 10, 500, 5000, -20} {
		res := f.Feed(raw)
		assert.GreaterOrEqual(t, res.Value, 0, "raw=%d", raw)
		assert.LessOrEqual(t, res.Value, DefaultResolution-1, "raw=%d", raw)
	}
	assert.Equal(t, 0, f.Value())

	f.Reconfigure(Config{Resolution: -8})
	assert.Equal(t, DefaultResolution, f.Config().Resolution)
}

func TestNew_InitialState(t *testing.T) {
	f := New(DefaultConfig())
	assert.Equal(t, State{}, f.State())
	assert.Equal(t, 0, f.Value())
	assert.False(t, f.HasChanged())
}

func TestFeed_EndToEnd(t *testing.T) {
	f := New(awakeConfig(0.01))

	inputs := []int{0, 0, 0, 500, 500, 500}
	var outputs []int
	var changed []bool
	for _, raw := range inputs {
		res := f.Feed(raw)
		assert.Equal(t, raw, res.Raw)
		outputs = append(outputs, res.Value)
		changed = append(changed, res.Changed)
	}

	assert.Equal(t, []int{0, 0, 0}, outputs[:3])
	assert.Equal(t, []bool{false, false, false, true, false, false}, changed)
	for i := 3; i < len(outputs); i++ {
		assert.Greater(t, outputs[i], 0)
		assert.LessOrEqual(t, outputs[i], 500)
	}
	assert.Equal(t, 500, outputs[len(outputs)-1])
}

func TestFeed_SmallStepsAreDamped(t *testing.T) {
	f := New(awakeConfig(0.01))
	f.Feed(500)
	require.Equal(t, 500, f.Value())

	// diff 10 -> snap = 2*(1-1/1.1) ~ 0.18
	res := f.Feed(510)
	assert.Equal(t, 501, res.Value)
	assert.InDelta(t, 501.818, f.State().Smooth, 0.001)
}

func TestFeed_ConvergesWithoutSleep(t *testing.T) {
	f := New(awakeConfig(0.01))

	for i := 0; i < 5000; i++ {
		f.Feed(50)
	}

	assert.InDelta(t, 50.0, f.State().Smooth, 0.05)
	assert.InDelta(t, 50, f.Value(), 1)
	assert.False(t, f.IsSleeping())
}

func TestFeed_SleepFreezesOutput(t *testing.T) {
	f := New(Config{
		SnapMultiplier:    0.01,
		SleepEnable:       true,
		EdgeSnapEnable:    true,
		ActivityThreshold: 4,
		Resolution:        1024,
	})

	for i := 0; i < 20; i++ {
		f.Feed(512)
	}
	require.True(t, f.IsSleeping())
	require.Equal(t, 512, f.Value())

	for _, noise := range []int{2, -2, 1, -3, 3, 0, -1, 2} {
		res := f.Feed(512 + noise)
		assert.Equal(t, 512, res.Value)
		assert.False(t, res.Changed)
		assert.True(t, f.IsSleeping())
	}

	res := f.Feed(700)
	assert.False(t, f.IsSleeping())
	assert.True(t, res.Changed)
	assert.Equal(t, 700, res.Value)
}

func TestReconfigure_DisablingSleepWakes(t *testing.T) {
	f := New(DefaultConfig())
	for i := 0; i < 20; i++ {
		f.Feed(512)
	}
	require.True(t, f.IsSleeping())

	cfg := DefaultConfig()
	cfg.SleepEnable = false
	f.Reconfigure(cfg)
	f.Feed(512)

	assert.False(t, f.IsSleeping())
	assert.Equal(t, 512, f.Value())
}

func TestFeed_NoSleepWhenDisabled(t *testing.T) {
	f := New(awakeConfig(0.01))
	for i := 0; i < 20; i++ {
		f.Feed(512)
	}
	assert.False(t, f.IsSleeping())
}

func TestFeed_EdgeSnap(t *testing.T) {
	withEdge := DefaultConfig()
	withoutEdge := DefaultConfig()
	withoutEdge.EdgeSnapEnable = false

	// Near the top the exaggerated reading overshoots and is clamped to the maximum
	f := New(withEdge)
	assert.Equal(t, 1023, f.Feed(1022).Value)
	assert.Equal(t, 1022, f.RawValue())

	f = New(withoutEdge)
	assert.Equal(t, 1022, f.Feed(1022).Value)

	// Near the bottom the reading is pulled to zero
	f = New(withEdge)
	f.Feed(500)
	assert.Equal(t, 0, f.Feed(2).Value)

	f = New(withoutEdge)
	f.Feed(500)
	assert.Equal(t, 2, f.Feed(2).Value)
}

func TestFeed_EdgeSnapNeedsSleep(t *testing.T) {
	cfg := awakeConfig(0.01)
	cfg.EdgeSnapEnable = true

	f := New(cfg)
	assert.Equal(t, 1022, f.Feed(1022).Value)
}

func TestFeed_OutputBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	configs := []Config{
		DefaultConfig(),
		awakeConfig(1),
		awakeConfig(0),
		{SnapMultiplier: 0.5, SleepEnable: true, EdgeSnapEnable: true, ActivityThreshold: 50, Resolution: 256},
		{SnapMultiplier: 0.1, SleepEnable: true, EdgeSnapEnable: true, ActivityThreshold: -3, Resolution: 4096},
	}

	for _, cfg := range configs {
		f := New(cfg)
		for i := 0; i < 5000; i++ {
			raw := rng.Intn(3*cfg.Resolution) - cfg.Resolution
			res := f.Feed(raw)
			require.GreaterOrEqual(t, res.Value, 0)
			require.LessOrEqual(t, res.Value, cfg.Resolution-1)
		}
	}
}

func TestReconfigure_KeepsState(t *testing.T) {
	f := New(awakeConfig(0.01))
	f.Feed(300)
	f.Feed(310)
	before := f.State()

	cfg := DefaultConfig()
	cfg.SnapMultiplier = 3
	f.Reconfigure(cfg)

	assert.Equal(t, before, f.State())
	assert.Equal(t, 1.0, f.Config().SnapMultiplier)
	assert.True(t, f.Config().SleepEnable)
}

func TestFeed_WithMapper(t *testing.T) {
	table, err := rangemap.NewTable([]int{0, 100, 200}, []int{0, 128, 255})
	require.NoError(t, err)

	cfg := awakeConfig(0.01)
	cfg.Resolution = 256
	f := New(cfg, WithMapper(table))

	res := f.Feed(100)
	assert.Equal(t, 128, res.Raw)
	assert.Equal(t, 128, res.Value)
	assert.Equal(t, 128, f.RawValue())

	f.SetMapper(nil)
	res = f.Feed(200)
	assert.Equal(t, 200, res.Raw)
}

func TestMappedValue(t *testing.T) {
	toByte, err := rangemap.NewLinear(0, 1023, 0, 255)
	require.NoError(t, err)

	f := New(awakeConfig(0.01))
	f.Feed(1023)
	assert.Equal(t, 255, f.MappedValue(toByte))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Filter.SleepEnable = false
	cfg.Map = config.MapConfig{Mode: config.MapLinear, InMin: 0, InMax: 1023, OutMin: 0, OutMax: 255}

	f, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.False(t, f.Config().SleepEnable)
	assert.Equal(t, 255, f.Feed(1023).Raw)

	cfg.Map = config.MapConfig{Mode: config.MapTable, In: []int{10, 5}, Out: []int{0, 1}}
	_, err = NewFromConfig(cfg, nil)
	assert.ErrorIs(t, err, rangemap.ErrNotIncreasing)
}

func TestFeed_LogsChanges(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	table, err := rangemap.NewTable([]int{0, 1023}, []int{0, 1023})
	require.NoError(t, err)

	f := New(awakeConfig(0.01), WithLogger(zap.New(core)), WithMapper(table))
	assert.Equal(t, 1, logs.FilterMessage("input mapping").Len())

	f.Feed(0)
	f.Feed(400)
	f.Feed(400)
	f.Feed(800)

	changes := logs.FilterMessage("value changed").All()
	require.Len(t, changes, 2)
	assert.Equal(t, int64(400), changes[0].ContextMap()["value"])
	assert.Equal(t, int64(800), changes[1].ContextMap()["value"])
}
