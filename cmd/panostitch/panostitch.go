package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abworrall/panostitch/pkg/features"
	"github.com/abworrall/panostitch/pkg/raster"
	"github.com/abworrall/panostitch/pkg/stitch"
)

var (
	fVerbosity int
	fOutput    string
	fSeed      int64
	fNoResize  bool
	fDumpGrids bool
	fWorkers   int
	fJSONLog   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "panostitch",
		Short: "panostitch assembles a panorama from a sequence of overlapping photos",
		Long: `panostitch takes photos (files, or directories of files, in name order) that
each overlap their neighbour by roughly a third, and stitches them left to
right into one panorama. Any .yaml file among the arguments is loaded as the
config; flags override it.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&fVerbosity, "verbosity", "v", 0, "how verbose to get")
	pf.StringVarP(&fOutput, "output", "o", "panorama.png", "output file (.png, .jpg or .hdr)")
	pf.Int64Var(&fSeed, "seed", 0, "random seed, for reproducible runs (0 picks one)")
	pf.BoolVar(&fNoResize, "noresize", false, "don't resize the inputs before stitching")
	pf.BoolVar(&fDumpGrids, "dumpgrids", false, "write out the blend confidence and distance masks as PNGs")
	pf.IntVar(&fWorkers, "workers", 4, "goroutines for feature detection")
	pf.BoolVar(&fJSONLog, "json", false, "log as JSON")

	rootCmd.AddCommand(newStitchCmd("stitch", "sequential", "Stitch images one at a time onto a growing panorama"))
	rootCmd.AddCommand(newStitchCmd("merge", "merge", "Place all images in one frame, and feather them together at once"))
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func newStitchCmd(use, strategy, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <files|dirs...>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := initLogger(fVerbosity, fJSONLog)
			log.Infof("panostitch %s starting", use)

			in, err := raster.LoadFilesAndDirs(args...)
			if err != nil {
				return err
			}
			cfg, err := buildConfig(cmd, in.ConfigFiles)
			if err != nil {
				return err
			}
			cfg.Strategy = strategy
			if err := cfg.Finalize(); err != nil {
				return err
			}
			if cfg.Verbosity > 0 {
				log.SetLevel(logrus.DebugLevel)
				log.Debugf("Final configuration:-\n\n%s\n", cfg.AsYaml())
			}

			return run(cfg, in.Frames, log)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [config.yaml...]",
		Short: "Print the effective configuration, as yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args)
			if err != nil {
				return err
			}
			if err := cfg.Finalize(); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.AsYaml())
			return nil
		},
	}
}

func initLogger(verbosity int, jsonOut bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if jsonOut {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetLevel(logrus.InfoLevel)
	if verbosity > 0 {
		logger.SetLevel(logrus.DebugLevel)
		logger.Debug("Debug logging enabled")
	}
	return logger
}

// buildConfig starts from the defaults, layers on each yaml file in turn
// (later files win), and then any flags the user actually set.
func buildConfig(cmd *cobra.Command, configFiles []string) (stitch.Config, error) {
	cfg := stitch.NewConfig()
	for _, f := range configFiles {
		c, err := stitch.LoadConfig(f)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		cfg.Verbosity = fVerbosity
	}
	if flags.Changed("output") || cfg.OutputFilename == "" {
		cfg.OutputFilename = fOutput
	}
	if flags.Changed("seed") {
		cfg.Seed = fSeed
	}
	if flags.Changed("noresize") {
		cfg.Resize.Disabled = fNoResize
	}
	if flags.Changed("dumpgrids") {
		cfg.DumpGrids = fDumpGrids
	}
	if flags.Changed("workers") {
		cfg.Workers = fWorkers
	}
	return cfg, nil
}

func run(cfg stitch.Config, frames []raster.Frame, log *logrus.Logger) error {
	if len(frames) == 0 {
		return fmt.Errorf("no images found")
	}
	log.Infof("Loaded %d images", len(frames))
	warnOnMixedExposures(frames, log)

	rasters := make([]*raster.Raster, len(frames))
	for i, f := range frames {
		rasters[i] = raster.AdaptiveResize(f.Raster, cfg.Resize)
		log.WithField("image", i+1).Infof("%s -> %s", f, rasters[i])
	}

	engine := features.NewHarrisEngine(cfg.Features)
	feats, err := features.DetectAll(engine, rasters, cfg.Workers)
	if err != nil {
		return err
	}
	for i, f := range feats {
		entry := log.WithFields(logrus.Fields{"image": i + 1, "features": f.Len()})
		if f.Len() < cfg.Resize.MinKeypoints {
			entry.Warnf("only %d features, stitching may be unreliable", f.Len())
		} else {
			entry.Debug("features detected")
		}
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
		log.Debugf("random seed %d", cfg.Seed)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	var pano *raster.Raster
	var rep *stitch.Report
	switch cfg.Strategy {
	case "merge":
		pano, rep, err = stitch.NewMerger(cfg, engine, rng, log).MergeSequence(rasters, feats)
	default:
		pano, rep, err = stitch.NewAssembler(cfg, engine, rng, log).Run(rasters, feats)
	}
	if err != nil {
		return err
	}
	rep.Summarize()
	log.Debugf("%s", rep)

	if err := raster.WriteFile(pano, cfg.OutputFilename); err != nil {
		return err
	}
	log.Infof("Panorama %s saved to %s", pano, cfg.OutputFilename)
	return nil
}

// warnOnMixedExposures checks the EXIF, as the gamma matching can only
// paper over about a stop of exposure difference.
func warnOnMixedExposures(frames []raster.Frame, log logrus.FieldLogger) {
	spread, ok := raster.EVSpread(frames)
	if !ok {
		return
	}
	if spread > 1 {
		log.WithField("stops", spread).Warn("frames were shot with very different exposures")
	} else if spread > 0 {
		log.WithField("stops", spread).Info("frames were shot with slightly different exposures")
	}
}
