package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/ignazhar/radaurio/algorithms/filters"
	"github.com/ignazhar/radaurio/logging"
)

var (
	// ErrUnsupportedFormat is returned for containers other than WAV and MP3
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrInvalidWAV is returned when the WAV headers cannot be parsed
	ErrInvalidWAV = errors.New("invalid wav file")
	// ErrNoAudio is returned when a file decodes to zero samples
	ErrNoAudio = errors.New("no audio samples")
)

// Format is an audio container
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// FormatFromPath picks the container from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav", "wave":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// AudioData represents decoded audio split into fixed-size blocks
type AudioData struct {
	// Blocks holds the samples normalised to [-1, 1]. Multi-channel audio
	// stays interleaved unless the decoder downmixes to mono.
	Blocks      [][]float64   `json:"-"`
	SampleRate  int           `json:"sample_rate"`
	Channels    int           `json:"channels"`
	Frames      int           `json:"frames"`
	Duration    time.Duration `json:"duration"`
	Format      Format        `json:"format"`
	MinBlockLen int           `json:"min_block_len"`
	MaxBlockLen int           `json:"max_block_len"`
}

// Seconds returns the duration as a float
func (a *AudioData) Seconds() float64 {
	return a.Duration.Seconds()
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// BlockSize is the number of frames per block
	BlockSize int `json:"block_size"`
	// MonoDownmix averages the channels of every frame
	MonoDownmix bool `json:"mono_downmix"`
	// RemoveDC high-passes every channel before blocking
	RemoveDC bool `json:"remove_dc"`
}

// DefaultBlockSize is the number of samples per channel in one MPEG-1 Layer
// III frame
const DefaultBlockSize = 1152

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		BlockSize:   DefaultBlockSize,
		MonoDownmix: false,
		RemoveDC:    false,
	}
}

// Decoder turns WAV and MP3 files into sample blocks
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	if config.BlockSize <= 0 {
		config.BlockSize = DefaultBlockSize
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file, choosing the container by extension
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	format, err := FormatFromPath(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	logger.Debug("Starting audio file decode", logging.Fields{"format": string(format)})

	data, err := d.Decode(f, format)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	logger.Debug("Audio decoded", logging.Fields{
		"sample_rate":   data.SampleRate,
		"channels":      data.Channels,
		"blocks":        len(data.Blocks),
		"duration":      data.Duration.String(),
		"min_block_len": data.MinBlockLen,
		"max_block_len": data.MaxBlockLen,
	})

	return data, nil
}

// Decode reads a whole stream of the given format
func (d *Decoder) Decode(r io.ReadSeeker, format Format) (*AudioData, error) {
	switch format {
	case FormatWAV:
		return d.decodeWAV(r)
	case FormatMP3:
		return d.decodeMP3(r)
	default:
		return nil, fmt.Errorf("%q: %w", string(format), ErrUnsupportedFormat)
	}
}

func (d *Decoder) decodeWAV(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	channels := format.NumChannels

	buf := &audio.IntBuffer{
		Data:   make([]int, d.config.BlockSize*channels),
		Format: format,
	}

	scale := float64(int(1) << (bitDepth - 1))
	var offset float64
	if bitDepth == 8 {
		// 8 bit PCM is unsigned
		offset = scale
	}

	var samples []float64
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("error reading wav pcm data: %w", err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			samples = append(samples, (float64(v)-offset)/scale)
		}
	}

	return d.assemble(samples, format.SampleRate, channels, FormatWAV)
}

func (d *Decoder) decodeMP3(r io.Reader) (*AudioData, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("error while decoding the mp3 file: %w", err)
	}

	// go-mp3 always produces 16 bit little endian stereo
	const channels = 2
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("error reading mp3 data: %w", err)
	}

	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float64(v) / 32768
	}

	return d.assemble(samples, decoder.SampleRate(), channels, FormatMP3)
}

// assemble splits interleaved samples into blocks of BlockSize frames
func (d *Decoder) assemble(samples []float64, sampleRate, channels int, format Format) (*AudioData, error) {
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%d channels at %d Hz: %w", channels, sampleRate, ErrNoAudio)
	}

	frames := len(samples) / channels
	if frames == 0 {
		return nil, ErrNoAudio
	}
	samples = samples[:frames*channels]

	if d.config.RemoveDC {
		if err := filters.RemoveDCInterleaved(samples, channels, filters.DefaultPole); err != nil {
			return nil, err
		}
	}

	width := channels
	if d.config.MonoDownmix && channels > 1 {
		samples = downmix(samples, channels)
		width = 1
	}

	blockLen := d.config.BlockSize * width
	data := &AudioData{
		SampleRate: sampleRate,
		Channels:   width,
		Frames:     frames,
		Duration:   time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second)),
		Format:     format,
	}

	for start := 0; start < len(samples); start += blockLen {
		block := samples[start:min(start+blockLen, len(samples))]
		data.Blocks = append(data.Blocks, block)
	}

	data.MinBlockLen, data.MaxBlockLen = len(data.Blocks[0]), len(data.Blocks[0])
	for _, block := range data.Blocks[1:] {
		data.MinBlockLen = min(data.MinBlockLen, len(block))
		data.MaxBlockLen = max(data.MaxBlockLen, len(block))
	}

	return data, nil
}

// downmix averages each frame of interleaved samples
func downmix(samples []float64, channels int) []float64 {
	mono := make([]float64, len(samples)/channels)
	for i := range mono {
		sum := 0.0
		for _, v := range samples[i*channels : (i+1)*channels] {
			sum += v
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
