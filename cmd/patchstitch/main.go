package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"patchstitch/pkg/batch"
	"patchstitch/pkg/config"
	"patchstitch/pkg/logging"
)

const description = `Reconstructs images from the square patches they were cut into.

Each sample folder holds the patches of one image. Patches are placed on a
k x k grid in row-major order (optionally shuffled) and written as one image.`

// Globals are flags shared by every command
type Globals struct {
	Config    string `short:"c" help:"Path to the YAML configuration file." default:"patchstitch.yaml" type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the config file."`
	LogFormat string `help:"Log format (text, json). Overrides the config file."`
}

// RunFlags override the config file for a reconstruction run
type RunFlags struct {
	PatchDir   string `help:"Root of the input patches." type:"path"`
	OutputDir  string `help:"Root of the reconstructed images." type:"path"`
	Format     string `help:"Output format (jpg, png, gif, tiff, bmp, webp)."`
	Shuffle    bool   `help:"Place patches in a random permutation."`
	Seed       *int64 `help:"Seed for --shuffle. Unset keeps the config file seed."`
	Workers    int    `help:"Samples reconstructed concurrently. 0 keeps the config file value."`
	ShowSample bool   `help:"Write an annotated preview next to every output."`
}

func (f *RunFlags) apply(cfg *config.Config) {
	if f.PatchDir != "" {
		cfg.Input.PatchDir = f.PatchDir
	}
	if f.OutputDir != "" {
		cfg.Output.Dir = f.OutputDir
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Shuffle {
		cfg.Reconstruction.RandomShufflePatches = true
	}
	if f.Seed != nil {
		seed := *f.Seed
		cfg.Reconstruction.Seed = &seed
	}
	if f.Workers > 0 {
		cfg.Processing.Workers = f.Workers
	}
	if f.ShowSample {
		cfg.Debug.ShowSample = true
	}
}

// BatchCmd reconstructs the category/patch-size/measure tree
type BatchCmd struct {
	RunFlags `embed:""`

	DatasetName string `help:"Namespace of the output tree."`
	Measure     string `help:"Measure sub-path to reconstruct, e.g. ae/increasing."`
}

func (c *BatchCmd) Run(g *Globals) error {
	cfg, log, err := setup(g, func(cfg *config.Config) {
		c.apply(cfg)
		if c.DatasetName != "" {
			cfg.Output.DatasetName = c.DatasetName
		}
		if c.Measure != "" {
			cfg.Input.Measure = c.Measure
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := batch.NewDriver(cfg, log)
	jobs, diags, err := driver.PlanTree()
	if err != nil {
		return err
	}

	report := driver.Run(ctx, jobs)
	report.AddDiagnostics(diags)
	return finish(cfg, log, report, filepath.Join(cfg.Output.Dir, cfg.Output.DatasetName))
}

// StitchCmd reconstructs every sample folder directly under the patch dir
type StitchCmd struct {
	RunFlags `embed:""`
}

func (c *StitchCmd) Run(g *Globals) error {
	cfg, log, err := setup(g, c.apply)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := batch.NewDriver(cfg, log)
	jobs, err := driver.PlanFlat()
	if err != nil {
		return err
	}

	report := driver.Run(ctx, jobs)
	return finish(cfg, log, report, cfg.Output.Dir)
}

// InitConfigCmd writes the default configuration
type InitConfigCmd struct {
	Path  string `arg:"" optional:"" help:"Where to write the configuration." default:"patchstitch.yaml" type:"path"`
	Force bool   `help:"Overwrite an existing file."`
}

func (c *InitConfigCmd) Run(g *Globals) error {
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
	}
	if err := config.CreateDefaultConfigFile(c.Path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", c.Path)
	return nil
}

type cli struct {
	Globals

	Batch      BatchCmd      `cmd:"" help:"Reconstruct the category/patch-size/measure tree."`
	Stitch     StitchCmd     `cmd:"" help:"Reconstruct every sample folder under the patch dir."`
	InitConfig InitConfigCmd `cmd:"" name:"init-config" help:"Write the default configuration file."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("patchstitch"),
		kong.Description(description),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&c.Globals))
}

// setup loads and validates the configuration, applies command overrides
// and builds the logger
func setup(g *Globals, override func(*config.Config)) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, nil, err
	}
	override(cfg)
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	log.WithFields(logrus.Fields{
		"patch_dir":  cfg.Input.PatchDir,
		"output_dir": cfg.Output.Dir,
		"format":     cfg.Output.Format,
		"shuffle":    cfg.Reconstruction.RandomShufflePatches,
		"workers":    cfg.Processing.Workers,
	}).Info("Starting reconstruction")

	return cfg, log, nil
}

// finish writes the run report and turns failed samples into a non-zero exit
func finish(cfg *config.Config, log *logrus.Logger, report *batch.Report, reportDir string) error {
	if name := cfg.Output.ReportFile; name != "" {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(reportDir, name)
		}
		if err := report.Write(path); err != nil {
			log.WithError(err).Error("Failed to write report")
		} else {
			log.WithField("report", path).Info("Report written")
		}
	}

	for _, res := range report.Failures() {
		log.WithFields(logrus.Fields{
			"sample": res.Name,
			"source": res.SourceDir,
		}).Error(res.Error)
	}

	fmt.Printf("\nReconstructed %d of %d samples in %.2f seconds\n",
		report.Succeeded, report.Total, report.Duration.Round(time.Millisecond).Seconds())
	if report.Skipped > 0 {
		fmt.Printf("Skipped %d missing input paths\n", report.Skipped)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d samples failed", report.Failed, report.Total)
	}
	return nil
}
