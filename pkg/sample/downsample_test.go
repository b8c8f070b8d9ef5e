package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSamples(n int) []Sample {
	now := time.Now()
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Timestamp: now.Add(time.Duration(i) * time.Millisecond), Raw: i, Value: i}
	}
	return samples
}

func values(samples []Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := makeSamples(5)

	result := Downsample(nil, samples, 10)
	assert.Equal(t, samples, result)

	// The result is a copy
	result[0].Value = 99
	assert.Equal(t, 0, samples[0].Value)
}

func TestDownsample_KeepsEnds(t *testing.T) {
	result := Downsample(nil, makeSamples(10), 4)
	assert.Equal(t, []int{0, 3, 6, 9}, values(result))

	result = Downsample(nil, makeSamples(1000), 7)
	require.Len(t, result, 7)
	assert.Equal(t, 0, result[0].Value)
	assert.Equal(t, 999, result[6].Value)
	for i := 1; i < len(result); i++ {
		assert.Greater(t, result[i].Value, result[i-1].Value)
	}
}

func TestDownsample_SinglePoint(t *testing.T) {
	assert.Equal(t, []int{9}, values(Downsample(nil, makeSamples(10), 1)))
}

func TestDownsample_DestinationReuse(t *testing.T) {
	dst := make([]Sample, 0, 100)

	result := Downsample(dst, makeSamples(500), 50)
	require.Len(t, result, 50)
	assert.Same(t, &dst[:1][0], &result[0], "destination should be reused")

	result = Downsample(result, makeSamples(20), 50)
	assert.Len(t, result, 20)
	assert.Same(t, &dst[:1][0], &result[0], "destination should be reused")
}

func TestDownsample_EmptyInput(t *testing.T) {
	assert.Empty(t, Downsample(nil, nil, 10))
	assert.Empty(t, Downsample(make([]Sample, 3), nil, 10))
}
