package stitch

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/panostitch/pkg/features"
	"github.com/abworrall/panostitch/pkg/raster"
)

type EstimatorOptions struct {
	MinHomographyMatches int     `yaml:"min_homography_matches"` // Below this many, go straight to translation
	HomographyThreshold  float64 `yaml:"homography_threshold"`   // Reprojection error, in pixels, for an inlier
	HomographyMaxIters   int     `yaml:"homography_max_iters"`
	HomographyConfidence float64 `yaml:"homography_confidence"`
	IdentityTolerance    float64 `yaml:"identity_tolerance"` // How close to identity the linear part must be to get swapped out
	TranslationTrials    int     `yaml:"translation_trials"`
	TranslationThreshold float64 `yaml:"translation_threshold"`
	MinConsensus         float64 `yaml:"min_consensus"` // Fraction of matches that must agree, or we take the median
}

type ExposureOptions struct {
	SampleFraction float64 `yaml:"sample_fraction"`
	MinSamples     int     `yaml:"min_samples"`      // Always draw at least this many
	MinValid       int     `yaml:"min_valid"`        // Fewer valid samples than this, and we don't correct
	DarkThreshold  float64 `yaml:"dark_threshold"`   // Ignore samples with lightness at or below this
	Iterations     int     `yaml:"iterations"`
	StepSize       float64 `yaml:"step_size"`
	Tolerance      float64 `yaml:"tolerance"`
	MinGamma       float64 `yaml:"min_gamma"`
	MaxGamma       float64 `yaml:"max_gamma"`
}

type BlendOptions struct {
	DarkThreshold float64 `yaml:"dark_threshold"` // Blurred gray levels at or below this get zero confidence
	Epsilon       float64 `yaml:"epsilon"`
	Attenuation   float64 `yaml:"attenuation"` // How much of the left pixel survives in low confidence areas
}

type OverlapOptions struct {
	ShiftFactor    float64 `yaml:"shift_factor"`
	Min            int     `yaml:"min"`
	DefaultDivisor int     `yaml:"default_divisor"` // With no transform, overlap is min width over this
}

type CropOptions struct {
	Threshold uint8 `yaml:"threshold"`
	Margin    int   `yaml:"margin"`
}

// Config holds every tunable in the pipeline. The defaults from
// NewConfig are the ones the stitcher was tuned with; a yaml file can
// override any subset of them.
type Config struct {
	Verbosity      int    `yaml:"verbosity"`
	Strategy       string `yaml:"strategy"` // "sequential" or "merge"
	Seed           int64  `yaml:"seed"`     // 0 means seed from the clock
	Workers        int    `yaml:"workers"`
	DumpGrids      bool   `yaml:"dump_grids"`
	DumpDir        string `yaml:"dump_dir"`
	OutputFilename string `yaml:"output_filename"`

	Resize    raster.ResizeOptions `yaml:"resize"`
	Features  features.Options     `yaml:"features"`
	Estimator EstimatorOptions     `yaml:"estimator"`
	Exposure  ExposureOptions      `yaml:"exposure"`
	Blend     BlendOptions         `yaml:"blend"`
	Overlap   OverlapOptions       `yaml:"overlap"`
	Crop      CropOptions          `yaml:"crop"`
}

func NewConfig() Config {
	return Config{
		Strategy:       "sequential",
		Workers:        4,
		DumpDir:        ".",
		OutputFilename: "panorama.png",
		Resize:         raster.DefaultResizeOptions(),
		Features:       features.DefaultOptions(),
		Estimator: EstimatorOptions{
			MinHomographyMatches: 10,
			HomographyThreshold:  3.0,
			HomographyMaxIters:   2000,
			HomographyConfidence: 0.995,
			IdentityTolerance:    0.05,
			TranslationTrials:    100,
			TranslationThreshold: 2.0,
			MinConsensus:         0.3,
		},
		Exposure: ExposureOptions{
			SampleFraction: 0.01,
			MinSamples:     10,
			MinValid:       5,
			DarkThreshold:  0.05,
			Iterations:     100,
			StepSize:       0.01,
			Tolerance:      0.001,
			MinGamma:       0.5,
			MaxGamma:       2.0,
		},
		Blend: BlendOptions{
			DarkThreshold: 10,
			Epsilon:       1e-6,
			Attenuation:   0.7,
		},
		Overlap: OverlapOptions{
			ShiftFactor:    0.7,
			Min:            50,
			DefaultDivisor: 4,
		},
		Crop: CropOptions{
			Threshold: 1,
			Margin:    5,
		},
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func LoadConfig(filename string) (Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config '%s': %v", filename, err)
	}
	c, err := NewConfigFromYaml(b)
	if err != nil {
		return Config{}, fmt.Errorf("parse config '%s': %v", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Finalize checks the config hangs together.
func (c *Config) Finalize() error {
	switch c.Strategy {
	case "sequential", "merge":
	case "":
		c.Strategy = "sequential"
	default:
		return fmt.Errorf("no stitching strategy named '%s'", c.Strategy)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Exposure.MinGamma <= 0 || c.Exposure.MinGamma > c.Exposure.MaxGamma {
		return fmt.Errorf("bad gamma range [%f,%f]", c.Exposure.MinGamma, c.Exposure.MaxGamma)
	}
	if c.Overlap.DefaultDivisor < 1 {
		return fmt.Errorf("overlap default_divisor must be positive, not %d", c.Overlap.DefaultDivisor)
	}
	if c.Estimator.TranslationTrials < 1 {
		return fmt.Errorf("translation_trials must be positive, not %d", c.Estimator.TranslationTrials)
	}
	return nil
}
