package spectral

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, cyclesPerBlock float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * cyclesPerBlock * float64(i) / float64(n))
	}
	return out
}

func testFrames(rows, bins int) [][]float64 {
	frames := make([][]float64, rows)
	for r := range frames {
		frames[r] = make([]float64, bins)
		for b := range frames[r] {
			frames[r][b] = float64((r+1)*(b+2)%7) + 0.25*float64(b)
		}
	}
	return frames
}

func cloneFrames(frames [][]float64) [][]float64 {
	out := make([][]float64, len(frames))
	for i, f := range frames {
		out[i] = append([]float64(nil), f...)
	}
	return out
}

func TestFFTMagnitudeOfPureTone(t *testing.T) {
	transform := NewFFT(WindowRectangular)

	magnitude, err := transform.Magnitude(sine(64, 8), 64)
	require.NoError(t, err)
	require.Len(t, magnitude, 64)

	// a real sine of k cycles lands in bins k and N-k with amplitude N/2
	assert.InDelta(t, 32.0, magnitude[8], 1e-9)
	assert.InDelta(t, 32.0, magnitude[56], 1e-9)
	assert.InDelta(t, 0.0, magnitude[3], 1e-9)
}

func TestFFTMagnitudeZeroPads(t *testing.T) {
	transform := NewFFT("")

	magnitude, err := transform.Magnitude([]float64{1, 1, 1}, 8)
	require.NoError(t, err)
	require.Len(t, magnitude, 8)
	// DC bin is the plain sum of the samples
	assert.InDelta(t, 3.0, magnitude[0], 1e-12)

	_, err = transform.Magnitude([]float64{1, 2, 3}, 2)
	assert.Error(t, err)

	_, err = transform.Magnitude(nil, 0)
	assert.Error(t, err)
}

func TestFFTMagnitudeWithWindow(t *testing.T) {
	plain, err := NewFFT(WindowRectangular).Magnitude([]float64{1, 1, 1, 1}, 4)
	require.NoError(t, err)
	tapered, err := NewFFT(WindowHann).Magnitude([]float64{1, 1, 1, 1}, 4)
	require.NoError(t, err)

	// a Hann taper removes energy at the block edges
	assert.Less(t, tapered[0], plain[0])
}

func TestParseWindowType(t *testing.T) {
	w, err := ParseWindowType("")
	require.NoError(t, err)
	assert.Equal(t, WindowRectangular, w)

	w, err = ParseWindowType(" HANN ")
	require.NoError(t, err)
	assert.Equal(t, WindowHann, w)

	for _, name := range []WindowType{WindowHamming, WindowBlackman, WindowBartlett, WindowFlatTop} {
		fn, err := name.Func()
		require.NoError(t, err, name)
		assert.Len(t, fn(16), 16)
	}

	_, err = ParseWindowType("kaiser")
	assert.Error(t, err)
}

func TestBuildSpectrogramPadsToLongestBlock(t *testing.T) {
	blocks := [][]float64{sine(32, 4), sine(24, 3), sine(32, 4)}

	s, err := BuildSpectrogram(blocks, WindowRectangular)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 32, s.Bins())
	assert.Equal(t, 1, s.BlocksPerFrame)
	for _, frame := range s.Frames {
		for _, v := range frame {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestBuildSpectrogramPreconditions(t *testing.T) {
	_, err := BuildSpectrogram(nil, WindowRectangular)
	assert.ErrorIs(t, err, ErrEmptyBlocks)

	_, err = BuildSpectrogram([][]float64{{}, {}}, WindowRectangular)
	assert.ErrorIs(t, err, ErrEmptyBlocks)

	_, err = BuildSpectrogram([][]float64{{1, 2}}, WindowType("nope"))
	assert.Error(t, err)
}

func TestNewSpectrogramRejectsRaggedFrames(t *testing.T) {
	_, err := NewSpectrogram([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, ErrInconsistentFrames)

	_, err = NewSpectrogram(nil)
	assert.ErrorIs(t, err, ErrEmptySpectrogram)
}

func TestTruncateNyquist(t *testing.T) {
	s, err := NewSpectrogram([][]float64{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}})
	require.NoError(t, err)

	require.NoError(t, s.TruncateNyquist())
	assert.Equal(t, [][]float64{{1, 2}, {6, 7}}, s.Frames)

	empty := &Spectrogram{}
	assert.ErrorIs(t, empty.TruncateNyquist(), ErrEmptySpectrogram)
}

func TestGroupSizeOneIsIdentity(t *testing.T) {
	frames := testFrames(7, 9)
	s, err := NewSpectrogram(cloneFrames(frames))
	require.NoError(t, err)

	require.NoError(t, s.Group(1))

	assert.Equal(t, frames, s.Frames)
	assert.Equal(t, 1, s.BlocksPerFrame)
}

func TestGroupConservesEnergy(t *testing.T) {
	for _, groupSize := range []int{1, 2, 3, 4, 10, 25} {
		s, err := NewSpectrogram(testFrames(23, 11))
		require.NoError(t, err)
		before := s.Energy()

		require.NoError(t, s.Group(groupSize))

		assert.InDelta(t, before, s.Energy(), 1e-9, "group size %d", groupSize)
		assert.Equal(t, (23+groupSize-1)/groupSize, s.Len(), "group size %d", groupSize)
	}
}

func TestGroupKeepsPartialTrailingRun(t *testing.T) {
	s, err := NewSpectrogram([][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}})
	require.NoError(t, err)

	require.NoError(t, s.Group(2))

	assert.Equal(t, [][]float64{{3, 3}, {7, 7}, {5, 5}}, s.Frames)
	assert.Equal(t, 2, s.BlocksPerFrame)

	require.NoError(t, s.Group(3))
	assert.Equal(t, [][]float64{{15, 15}}, s.Frames)
	assert.Equal(t, 6, s.BlocksPerFrame)
}

func TestGroupPreconditions(t *testing.T) {
	s, err := NewSpectrogram(testFrames(3, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Group(0), ErrInvalidGroupSize)
	assert.ErrorIs(t, s.Group(-2), ErrInvalidGroupSize)

	empty := &Spectrogram{}
	assert.ErrorIs(t, empty.Group(2), ErrEmptySpectrogram)
}

func TestDominantBinSpikeIndependentOfWindow(t *testing.T) {
	frame := make([]float64, 40)
	frame[7] = 100

	for _, w := range []int{0, 1, 2, 5, 8, 20, 64} {
		assert.Equal(t, 7, DominantBin(frame, w), "half width %d", w)
	}
}

func TestDominantBinPrefersLowerIndexOnTies(t *testing.T) {
	frame := []float64{0, 0, 4, 0, 0, 0, 0, 0, 0, 4, 0, 0}
	assert.Equal(t, 2, DominantBin(frame, 1))

	assert.Equal(t, 0, DominantBin(make([]float64, 10), 5))
	assert.Equal(t, 0, DominantBin(nil, 5))
}

func TestDominantBinUsesWindowedEnergy(t *testing.T) {
	// a narrow tall spike loses to a wide band of energy
	frame := make([]float64, 60)
	frame[5] = 10
	for i := 30; i < 40; i++ {
		frame[i] = 3
	}

	got := DominantBin(frame, 5)
	assert.GreaterOrEqual(t, got, 30)
	assert.Less(t, got, 40)

	// with no neighbourhood the tallest bin wins
	assert.Equal(t, 5, DominantBin(frame, 0))
}

func TestExtractTrace(t *testing.T) {
	// 6 blocks, the tone moves from bin 4 to bin 10 half way through
	var blocks [][]float64
	for i := 0; i < 6; i++ {
		cycles := 4.0
		if i >= 3 {
			cycles = 10
		}
		blocks = append(blocks, sine(64, cycles))
	}

	s, err := BuildSpectrogram(blocks, WindowRectangular)
	require.NoError(t, err)

	trace, err := ExtractTrace(s, 3, 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{4, 10}, trace)
	assert.Equal(t, 32, s.Bins())
	assert.Equal(t, 3, s.BlocksPerFrame)
}

func TestExtractTracePreconditions(t *testing.T) {
	_, err := ExtractTrace(nil, 2, 5)
	assert.ErrorIs(t, err, ErrEmptySpectrogram)

	s, err := NewSpectrogram(testFrames(4, 8))
	require.NoError(t, err)
	_, err = ExtractTrace(s, 0, 5)
	assert.True(t, errors.Is(err, ErrInvalidGroupSize))

	tiny, err := NewSpectrogram([][]float64{{1}})
	require.NoError(t, err)
	_, err = ExtractTrace(tiny, 1, 5)
	assert.ErrorIs(t, err, ErrEmptySpectrogram)
}
