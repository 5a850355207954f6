package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	f, err := NewDCBlocker(DefaultPole)
	require.NoError(t, err)

	samples := make([]float64, 4000)
	for i := range samples {
		samples[i] = 0.8
	}
	f.ProcessInPlace(samples)

	// the step response decays as R^n
	assert.InDelta(t, 0.8, samples[0], 1e-12)
	assert.InDelta(t, 0.0, samples[len(samples)-1], 1e-6)
}

func TestDCBlockerPassesTone(t *testing.T) {
	f, err := NewDCBlockerWithCutoff(8000, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f.Cutoff(8000), 1e-9)

	const n = 8000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.3 + math.Sin(2*math.Pi*1000*float64(i)/8000)
	}
	f.ProcessInPlace(samples)

	peak := 0.0
	mean := 0.0
	for _, v := range samples[n/2:] {
		peak = math.Max(peak, math.Abs(v))
		mean += v
	}
	mean /= n / 2

	assert.InDelta(t, 0.0, mean, 1e-2)
	assert.InDelta(t, 1.0, peak, 0.02)
}

func TestDCBlockerStateAndReset(t *testing.T) {
	f, err := NewDCBlocker(0.9)
	require.NoError(t, err)

	first := f.Process(1)
	second := f.Process(1)
	assert.InDelta(t, 0.9, second, 1e-12)

	f.Reset()
	assert.Equal(t, first, f.Process(1))
	assert.Equal(t, 0.9, f.Pole())
}

func TestRemoveDCInterleavedKeepsChannelsApart(t *testing.T) {
	// left carries +1 offset, right -1
	samples := make([]float64, 2*2000)
	for i := range samples {
		samples[i] = 1
		if i%2 == 1 {
			samples[i] = -1
		}
	}

	require.NoError(t, RemoveDCInterleaved(samples, 2, DefaultPole))

	assert.InDelta(t, 1.0, samples[0], 1e-12)
	assert.InDelta(t, -1.0, samples[1], 1e-12)
	assert.InDelta(t, 0.0, samples[len(samples)-2], 1e-3)
	assert.InDelta(t, 0.0, samples[len(samples)-1], 1e-3)
}

func TestDCBlockerInvalidSettings(t *testing.T) {
	for _, pole := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err := NewDCBlocker(pole)
		assert.Error(t, err, "pole %v", pole)
	}

	_, err := NewDCBlockerWithCutoff(0, 5)
	assert.Error(t, err)
	_, err = NewDCBlockerWithCutoff(8000, 0)
	assert.Error(t, err)

	assert.Error(t, RemoveDCInterleaved([]float64{1}, 0, DefaultPole))
}
