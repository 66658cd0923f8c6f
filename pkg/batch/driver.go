// Package batch reconstructs every sample folder of a patch tree.
//
// Samples are independent: each job loads its own patches and writes its own
// output, so jobs run on a worker pool and a failing sample is recorded in
// the report without affecting the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"patchstitch/pkg/config"
	"patchstitch/pkg/fsutil"
	"patchstitch/pkg/imageio"
	"patchstitch/pkg/stitch"
	"patchstitch/pkg/visualization"
)

// ErrOutputConflict is returned for a job whose output path is already
// claimed by another job of the same run
var ErrOutputConflict = errors.New("output path claimed by another sample")

// Driver runs reconstruction jobs with the settings of one Config
type Driver struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	recon  *stitch.Reconstructor
	format imageio.Format
	opts   imageio.EncodeOptions
}

// NewDriver creates a driver. cfg should have passed Validate.
func NewDriver(cfg *config.Config, log logrus.FieldLogger) *Driver {
	params := cfg.StitchParams()
	params.Logger = log

	return &Driver{
		cfg:    cfg,
		log:    log,
		recon:  stitch.NewReconstructor(params),
		format: cfg.OutputFormat(),
		opts:   cfg.EncodeOptions(),
	}
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Run executes jobs on the configured number of workers and returns the
// report with results in job order. Cancelling ctx stops dispatching new
// jobs; the undispatched ones are reported as failed.
func (d *Driver) Run(ctx context.Context, jobs []Job) *Report {
	report := NewReport()
	results := make([]Result, len(jobs))
	pending := make([]bool, len(jobs))

	var runnable []indexedJob
	for i, conflict := range claimOutputs(jobs) {
		if conflict {
			results[i] = Result{Job: jobs[i]}
			results[i].setError(fmt.Errorf("%w: %s", ErrOutputConflict, jobs[i].OutputPath))
			continue
		}
		pending[i] = true
		runnable = append(runnable, indexedJob{index: i, job: jobs[i]})
	}

	workers := max(1, min(d.cfg.Processing.Workers, len(runnable)))
	jobCh := make(chan indexedJob)
	resultCh := make(chan indexedResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range jobCh {
				resultCh <- indexedResult{index: ij.index, result: d.RunJob(ctx, ij.job)}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, ij := range runnable {
			select {
			case jobCh <- ij:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	completed := 0
	for res := range resultCh {
		results[res.index] = res.result
		pending[res.index] = false
		completed++
		d.log.WithFields(logrus.Fields{
			"completed": completed,
			"total":     len(runnable),
		}).Debug("Progress")
	}

	for i, waiting := range pending {
		if waiting {
			results[i] = Result{Job: jobs[i]}
			results[i].setError(fmt.Errorf("not started: %w", context.Cause(ctx)))
		}
	}

	for _, res := range results {
		report.Add(res)
	}
	report.Finish()
	return report
}

// RunJob reconstructs a single sample. It never panics; every failure is
// returned on the Result.
func (d *Driver) RunJob(ctx context.Context, job Job) (res Result) {
	start := time.Now()
	res = Result{Job: job}
	log := d.log.WithFields(logrus.Fields{
		"sample": job.Name,
		"source": job.SourceDir,
	})

	if timeout := d.cfg.Processing.JobTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res.setError(fmt.Errorf("reconstruction panicked: %v", r))
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			log.WithError(res.Err).Warn("Failed to reconstruct sample")
			return
		}
		log.WithFields(logrus.Fields{
			"output":  job.OutputPath,
			"grid":    res.Grid.String(),
			"entropy": fmt.Sprintf("%.3f", res.Metrics.Entropy),
		}).Info("Reconstructed sample")
	}()

	if err := d.process(ctx, job, &res, log); err != nil {
		res.setError(err)
	}
	return res
}

func (d *Driver) process(ctx context.Context, job Job, res *Result, log logrus.FieldLogger) error {
	paths, err := fsutil.Files(job.SourceDir, d.cfg.Input.PatchExtensions)
	if err != nil {
		return err
	}

	set, err := stitch.LoadPatches(ctx, paths)
	if err != nil {
		return err
	}

	comp, err := d.recon.Reconstruct(ctx, set)
	if err != nil {
		return err
	}
	defer comp.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := imageio.Save(job.OutputPath, comp.Image, d.format, d.opts); err != nil {
		return err
	}

	metrics := stitch.ComputeMetrics(comp.Image)
	res.Grid = comp.Grid
	res.Metrics = &metrics
	res.Seed = comp.Seed

	if d.cfg.Debug.ShowSample {
		d.preview(comp, job, log)
	}
	return nil
}

// preview writes the annotated debug image next to the output. Failures
// only warn, the sample itself succeeded.
func (d *Driver) preview(comp *stitch.Composite, job Job, log logrus.FieldLogger) {
	path := PreviewPath(job.OutputPath)
	if err := visualization.NewViewer(comp).SavePreview(path); err != nil {
		log.WithError(err).Warn("Failed to save preview")
		return
	}
	log.WithField("preview", path).Debug("Saved preview")

	if d.cfg.Debug.OpenViewer {
		if err := visualization.Show(path); err != nil {
			log.WithError(err).Warn("Failed to show preview")
		}
	}
}

// PreviewPath returns the preview file name for an output image
func PreviewPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".preview.png"
}

// claimOutputs marks every job whose output path repeats an earlier job's
func claimOutputs(jobs []Job) []bool {
	seen := make(map[string]bool, len(jobs))
	conflicts := make([]bool, len(jobs))
	for i, job := range jobs {
		key := strings.ToLower(filepath.Clean(job.OutputPath))
		if seen[key] {
			conflicts[i] = true
			continue
		}
		seen[key] = true
	}
	return conflicts
}
