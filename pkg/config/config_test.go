package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"patchstitch/pkg/imageio"
	"patchstitch/pkg/stitch"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if cfg.OutputFormat() != imageio.JPEG {
		t.Errorf("Expected jpg default, got %s", cfg.OutputFormat())
	}
	if cfg.Processing.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.Workers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.DatasetName != DefaultConfig().Output.DatasetName {
		t.Error("Missing config file should give defaults")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patchstitch.yaml")
	data := `
input:
  patch_dir: /data/train-patches
  measure: ae/increasing
  categories: [cat, dog]
output:
  recon_output_dir: /data/cc-train
  dataset_name: CatsVsDogs
  output_format: PNG
reconstruction:
  random_shuffle_patches: true
  seed: 7
  canvas: mmap
processing:
  workers: 3
  job_timeout: 30s
debug:
  show_sample: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Loaded config should validate: %v", err)
	}

	if cfg.Input.PatchDir != "/data/train-patches" || cfg.Input.Measure != "ae/increasing" {
		t.Errorf("Unexpected input section: %+v", cfg.Input)
	}
	if len(cfg.Input.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %v", cfg.Input.Categories)
	}
	if cfg.Output.Dir != "/data/cc-train" {
		t.Errorf("recon_output_dir alias not applied, got %q", cfg.Output.Dir)
	}
	if cfg.OutputFormat() != imageio.PNG {
		t.Errorf("Expected png, got %s", cfg.OutputFormat())
	}
	if cfg.Processing.JobTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Processing.JobTimeout)
	}
	if cfg.Output.JPEGQuality != 95 {
		t.Errorf("Unset keys should keep defaults, got quality %d", cfg.Output.JPEGQuality)
	}

	params := cfg.StitchParams()
	if !params.Shuffle || params.Seed == nil || *params.Seed != 7 || params.Canvas != stitch.MmapCanvas {
		t.Errorf("Unexpected stitch params: %+v", params)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("input: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patchstitch.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Saved default config should validate: %v", err)
	}
	if cfg.Reconstruction.Seed != nil {
		t.Errorf("Expected null seed, got %v", *cfg.Reconstruction.Seed)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"unknown format", func(c *Config) { c.Output.Format = "exr" }, imageio.ErrUnsupportedFormat},
		{"no patch dir", func(c *Config) { c.Input.PatchDir = "" }, nil},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, nil},
		{"zero workers", func(c *Config) { c.Processing.Workers = 0 }, nil},
		{"bad quality", func(c *Config) { c.Output.JPEGQuality = 101 }, nil},
		{"bad canvas", func(c *Config) { c.Reconstruction.Canvas = "gpu" }, nil},
		{"negative timeout", func(c *Config) { c.Processing.JobTimeout = -time.Second }, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Errorf("Expected %v, got %v", tc.target, err)
			}
		})
	}
}
