// Package config provides configuration loading and management for patchstitch.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"patchstitch/pkg/imageio"
	"patchstitch/pkg/stitch"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input layout
	Input struct {
		// PatchDir is the root of the patch tree produced by the patch tool
		PatchDir string `yaml:"patch_dir"`

		// Measure is the sub-path selecting which ordering variant to
		// reconstruct, e.g. "ae/increasing"
		Measure string `yaml:"measure"`

		// Categories restricts the run to these category folders (all when empty)
		Categories []string `yaml:"categories"`

		// PatchSizes restricts the run to these patch-size folders (all when empty)
		PatchSizes []string `yaml:"patch_sizes"`

		// PatchExtensions lists the file extensions treated as patches
		// (every file when empty)
		PatchExtensions []string `yaml:"patch_extensions"`
	} `yaml:"input"`

	// Output layout and encoding
	Output struct {
		// Dir is the root of the reconstructed tree
		Dir string `yaml:"output_dir"`

		// ReconOutputDir is an alias of Dir
		ReconOutputDir string `yaml:"recon_output_dir,omitempty"`

		// DatasetName namespaces the output tree
		DatasetName string `yaml:"dataset_name"`

		// Format is the output codec (jpg, png, gif, tiff, bmp, webp)
		Format string `yaml:"output_format"`

		// JPEGQuality is used for jpg and lossy webp output
		JPEGQuality int `yaml:"jpeg_quality"`

		// Lossless selects lossless webp encoding
		Lossless bool `yaml:"lossless"`

		// PreserveAlpha keeps patch transparency for formats that carry it
		PreserveAlpha bool `yaml:"preserve_alpha"`

		// ReportFile is the run report name, relative to the dataset output
		// directory. Empty disables the report.
		ReportFile string `yaml:"report_file"`
	} `yaml:"output"`

	// Reconstruction parameters
	Reconstruction struct {
		// RandomShufflePatches places patches in a random permutation
		RandomShufflePatches bool `yaml:"random_shuffle_patches"`

		// Seed makes the shuffle reproducible; null draws a seed per sample
		Seed *int64 `yaml:"seed"`

		// Canvas is memory or mmap
		Canvas string `yaml:"canvas"`
	} `yaml:"reconstruction"`

	// Processing parameters
	Processing struct {
		// Workers is how many samples are reconstructed concurrently
		Workers int `yaml:"workers"`

		// JobTimeout bounds a single sample; zero disables it
		JobTimeout time.Duration `yaml:"job_timeout"`
	} `yaml:"processing"`

	// Debug aids
	Debug struct {
		// ShowSample writes an annotated preview next to every output
		ShowSample bool `yaml:"show_sample"`

		// OpenViewer opens each preview in the platform image viewer
		OpenViewer bool `yaml:"open_viewer"`
	} `yaml:"debug"`

	// Logging parameters
	Logging struct {
		// Level is debug, info, warn or error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.PatchDir = "patches"
	cfg.Input.PatchExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

	cfg.Output.Dir = "reconstructed"
	cfg.Output.DatasetName = "dataset"
	cfg.Output.Format = string(imageio.JPEG)
	cfg.Output.JPEGQuality = 95
	cfg.Output.Lossless = true
	cfg.Output.ReportFile = "report.yaml"

	cfg.Reconstruction.Canvas = string(stitch.MemoryCanvas)

	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if cfg.Output.ReconOutputDir != "" {
		cfg.Output.Dir = cfg.Output.ReconOutputDir
		cfg.Output.ReconOutputDir = ""
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks option values. It does not touch the filesystem.
func (c *Config) Validate() error {
	var errs []error

	if c.Input.PatchDir == "" {
		errs = append(errs, errors.New("patch_dir must be set"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output_dir must be set"))
	}
	if _, err := imageio.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d out of range 1-100", c.Output.JPEGQuality))
	}
	if _, err := stitch.ParseCanvasKind(c.Reconstruction.Canvas); err != nil {
		errs = append(errs, err)
	}
	if c.Processing.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Processing.Workers))
	}
	if c.Processing.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("job_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// OutputFormat returns the parsed output codec
func (c *Config) OutputFormat() imageio.Format {
	format, err := imageio.ParseFormat(c.Output.Format)
	if err != nil {
		return imageio.JPEG
	}
	return format
}

// EncodeOptions returns the codec tuning for the output format
func (c *Config) EncodeOptions() imageio.EncodeOptions {
	return imageio.EncodeOptions{
		Quality:  c.Output.JPEGQuality,
		Lossless: c.Output.Lossless,
	}
}

// StitchParams returns the reconstructor parameters described by the config
func (c *Config) StitchParams() *stitch.Params {
	canvas, err := stitch.ParseCanvasKind(c.Reconstruction.Canvas)
	if err != nil {
		canvas = stitch.MemoryCanvas
	}
	return &stitch.Params{
		Shuffle:       c.Reconstruction.RandomShufflePatches,
		Seed:          c.Reconstruction.Seed,
		Canvas:        canvas,
		PreserveAlpha: c.Output.PreserveAlpha,
	}
}
