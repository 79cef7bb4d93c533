package stitch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigFromYaml(t *testing.T) {
	c, err := NewConfigFromYaml([]byte("strategy: merge\nseed: 42\noverlap:\n  min: 30\nfeatures:\n  ratio_test: 0.6\n"))
	if err != nil {
		t.Fatalf("NewConfigFromYaml: %v", err)
	}
	if c.Strategy != "merge" || c.Seed != 42 || c.Overlap.Min != 30 || c.Features.RatioTest != 0.6 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	// Everything else keeps its default
	if c.Overlap.ShiftFactor != 0.7 || c.Estimator.TranslationTrials != 100 || c.Exposure.MaxGamma != 2.0 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestConfigAsYamlRoundTrip(t *testing.T) {
	c := NewConfig()
	c.Seed = 7
	y := c.AsYaml()
	if !strings.Contains(y, "strategy: sequential") {
		t.Fatalf("unexpected yaml:\n%s", y)
	}
	c2, err := NewConfigFromYaml([]byte(y))
	if err != nil {
		t.Fatalf("NewConfigFromYaml: %v", err)
	}
	if c2 != c {
		t.Fatalf("round trip changed the config:\n%+v\n%+v", c, c2)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("verbosity: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(good)
	if err != nil || c.Verbosity != 2 {
		t.Fatalf("LoadConfig: %v, %+v", err, c)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("verbosity: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected a parse error")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected a read error")
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty strategy", func(c *Config) { c.Strategy = "" }, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "pyramid" }, true},
		{"inverted gamma range", func(c *Config) { c.Exposure.MinGamma = 3 }, true},
		{"zero divisor", func(c *Config) { c.Overlap.DefaultDivisor = 0 }, true},
		{"no trials", func(c *Config) { c.Estimator.TranslationTrials = 0 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			tc.edit(&c)
			err := c.Finalize()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Finalize() = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && c.Strategy == "" {
				t.Fatalf("strategy wasn't defaulted")
			}
		})
	}
}
