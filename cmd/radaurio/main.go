// Command radaurio estimates the motion of a sound source passing a fixed
// microphone from a WAV or MP3 recording.
//
// Usage:
//
//	radaurio [flags] recording.{wav,mp3}
//
// Settings come from RADAURIO_* environment variables (optionally loaded from
// a .env file) and can be overridden by flags. The fit is printed as JSON.
//
// Examples:
//
//	radaurio pass.wav
//	radaurio -group-size 5 -chart fit.png pass.mp3
//	radaurio -log-format json -log-level debug -frames-dir frames pass.wav
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/ignazhar/radaurio/chart"
	"github.com/ignazhar/radaurio/estimator"
	"github.com/ignazhar/radaurio/estimator/config"
	"github.com/ignazhar/radaurio/logging"
	"github.com/ignazhar/radaurio/transcode"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "radaurio: load .env: %v\n", err)
		os.Exit(1)
	}

	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "radaurio: %v\n", err)
		}
		os.Exit(1)
	}
}

// report is the JSON document printed on success
type report struct {
	Input     string               `json:"input"`
	Audio     *transcode.AudioData `json:"audio"`
	GroupSize int                  `json:"group_size"`
	Tau0      float64              `json:"tau0"`
	Trace     []float64            `json:"trace"`
	Fit       *estimator.Result    `json:"fit"`
	Chart     string               `json:"chart,omitempty"`
	Frames    []string             `json:"frames,omitempty"`
}

func run(args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) error {
	cfg, err := config.Loader{Lookup: lookup}.Load()
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("radaurio", flag.ContinueOnError)
	flags.SetOutput(stderr)
	groupSize := flags.Int("group-size", cfg.GroupSize, "number of blocks summed into one trace step")
	halfWidth := flags.Int("peak-half-width", cfg.PeakHalfWidth, "half width in bins of the peak energy window")
	window := flags.String("window", cfg.Window, "taper applied to each block (rectangular, hann, hamming, blackman, bartlett, flattop)")
	mono := flags.Bool("mono", cfg.MonoDownmix, "average channels before the transform")
	removeDC := flags.Bool("remove-dc", cfg.RemoveDC, "high-pass the samples to drop any DC offset")
	chartPath := flags.String("chart", cfg.ChartPath, "write a trace vs model chart to this file")
	framesDir := flags.String("frames-dir", "", "write one spectrum chart per trace step into this directory")
	logLevel := flags.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	logFormat := flags.String("log-format", "text", "text or json")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: radaurio [flags] recording.{wav,mp3}\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("exactly one input file is required")
	}
	input := flags.Arg(0)

	cfg.GroupSize = *groupSize
	cfg.PeakHalfWidth = *halfWidth
	cfg.Window = *window
	cfg.MonoDownmix = *mono
	cfg.RemoveDC = *removeDC
	cfg.ChartPath = *chartPath
	cfg.LogLevel = *logLevel

	logger, err := newLogger(*logFormat, cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	if z, ok := logger.(*logging.ZapLogger); ok {
		defer z.Sync()
	}
	previous := logging.GetGlobalLogger()
	logging.SetGlobalLogger(logger)
	defer logging.SetGlobalLogger(previous)

	est, err := estimator.New(cfg)
	if err != nil {
		return err
	}

	audio, err := transcode.NewDecoder(&transcode.DecoderConfig{
		BlockSize:   transcode.DefaultBlockSize,
		MonoDownmix: cfg.MonoDownmix,
		RemoveDC:    cfg.RemoveDC,
	}).DecodeFile(input)
	if err != nil {
		return err
	}

	trace, spectrogram, err := est.ExtractTrace(audio.Blocks, cfg.GroupSize)
	if err != nil {
		return err
	}

	tau0, err := estimator.TimeStep(audio.Seconds(), len(audio.Blocks), cfg.GroupSize)
	if err != nil {
		return err
	}

	result, err := est.Fit(trace, tau0)
	if err != nil {
		return err
	}

	out := report{
		Input:     input,
		Audio:     audio,
		GroupSize: cfg.GroupSize,
		Tau0:      tau0,
		Trace:     trace,
		Fit:       result,
	}

	if cfg.ChartPath != "" {
		if err := chart.Render(cfg.ChartPath, trace, result.Model); err != nil {
			return err
		}
		out.Chart = cfg.ChartPath
	}
	if *framesDir != "" {
		out.Frames, err = chart.RenderSpectrogram(*framesDir, spectrogram)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newLogger(format, level string, stderr io.Writer) (logging.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch format {
	case "json":
		return logging.NewZapLogger(lvl)
	case "text", "":
		logger := logging.NewDefaultLoggerWithWriters(stderr, stderr, false)
		logger.SetLevel(lvl)
		return logger, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
