package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/LdDl/sot-go/config"
	"github.com/LdDl/sot-go/frameio"
	"github.com/LdDl/sot-go/gocvio"
	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file. Flags below override its values")
	source := flag.String("source", "", "Video file, capture device id or directory of frames")
	sourceKind := flag.String("kind", "", "Source kind: images, video or device")
	algo := flag.String("algo", "", "Tracker: ncc, kalman, medianflow, mil, kcf or csrt")
	threshold := flag.Float64("threshold", 0, "Re-detection threshold in (0, 1]")
	display := flag.Bool("display", true, "Show preview window and select object interactively")
	csvPath := flag.String("csv", "", "Write per-frame results to CSV file")
	selection := flag.String("select", "", "Fixed object box 'x,y,width,height' instead of interactive selection")
	flag.Parse()

	cfg, err := loadConfig(*configPath, func(cfg *config.Config) error {
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if set["source"] {
			cfg.Source = *source
		}
		if set["kind"] {
			cfg.SourceKind = *sourceKind
		}
		if set["algo"] {
			cfg.Algorithm = strings.ToLower(*algo)
		}
		if set["threshold"] {
			cfg.MatchThreshold = *threshold
		}
		if set["display"] {
			cfg.Display = *display
		}
		if set["csv"] {
			cfg.OutputCSV = *csvPath
		}
		if set["select"] {
			box, err := parseSelection(*selection)
			if err != nil {
				return err
			}
			cfg.Selection = box
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := run(ctx, cfg, &logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("tracking failed")
		os.Exit(1)
	}
	logger.Info().
		Int("frames", stats.Frames).
		Int("tracking_frames", stats.TrackingFrames).
		Int("redetections", stats.Redetections).
		Msg("done")
	fmt.Printf("\nTotal processing time: %.2f seconds\n", time.Since(start).Seconds())
}

func loadConfig(path string, override func(*config.Config) error) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := override(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func parseSelection(value string) (*config.Selection, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return nil, errors.Errorf("Selection must be 'x,y,width,height', got '%s'", value)
	}
	nums := make([]float64, 4)
	for i, part := range parts {
		num, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad selection component '%s'", part)
		}
		nums[i] = num
	}
	return &config.Selection{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}, nil
}

func run(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (sot.Stats, error) {
	source, closeSource, err := openSource(cfg)
	if err != nil {
		return sot.Stats{}, err
	}
	defer closeSource()

	var selector sot.RegionSelector
	if box, ok := cfg.SelectionRect(); ok {
		selector = frameio.FixedSelector{BBox: box}
	} else if cfg.Display {
		selector = gocvio.ROISelector{}
	} else {
		return sot.Stats{}, errors.New("No selection configured and display is disabled")
	}

	sinks := frameio.MultiSink{frameio.LogSink{Logger: *logger}}
	if cfg.OutputCSV != "" {
		file, err := os.Create(cfg.OutputCSV)
		if err != nil {
			return sot.Stats{}, errors.Wrapf(err, "Can't create '%s'", cfg.OutputCSV)
		}
		defer file.Close()
		csvSink := frameio.NewCSVSink(file)
		defer func() {
			if err := csvSink.Flush(); err != nil {
				logger.Error().Err(err).Msg("can't flush CSV")
			}
		}()
		sinks = append(sinks, csvSink)
	}
	if cfg.Display {
		window := gocvio.NewWindowSink("Tracking")
		defer window.Close()
		sinks = append(sinks, window)
	}

	algo, err := cfg.AlgorithmValue()
	if err != nil {
		return sot.Stats{}, err
	}
	tracker, err := gocvio.NewTracker(algo, cfg.TrackerOptions())
	if err != nil {
		return sot.Stats{}, err
	}
	return sot.Run(ctx, source, selector, sinks, tracker, cfg.Options(logger))
}

func openSource(cfg config.Config) (sot.FrameSource, func(), error) {
	switch cfg.SourceKind {
	case config.SourceImages:
		src, err := frameio.NewImageSequenceSource(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	case config.SourceDevice:
		src, err := gocvio.OpenDevice(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	default:
		src, err := gocvio.OpenVideo(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	}
}
