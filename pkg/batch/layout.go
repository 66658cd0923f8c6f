package batch

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"patchstitch/pkg/fsutil"
)

// Job is one sample folder to reconstruct into one output image
type Job struct {
	// Name is the sample folder name, which also names the output file
	Name string `yaml:"sample"`

	// SourceDir holds the patches of the sample
	SourceDir string `yaml:"source"`

	// OutputPath is where the reconstructed image is written
	OutputPath string `yaml:"output"`

	Category  string `yaml:"category,omitempty"`
	PatchSize string `yaml:"patch_size,omitempty"`
}

// Diagnostic reports an expected input path that was skipped
type Diagnostic struct {
	Path    string `yaml:"path"`
	Message string `yaml:"message"`
}

// PlanTree enumerates patch_dir/<category>/<patch_size>/<measure>/<sample>
// and maps every sample to
// output_dir/<dataset_name>/<measure>/<patch_size>/<category>/<sample>.<format>.
//
// A missing patch_dir is a fatal configuration error. Any other missing
// expected folder becomes a Diagnostic and planning continues.
func (d *Driver) PlanTree() ([]Job, []Diagnostic, error) {
	root := d.cfg.Input.PatchDir
	if !fsutil.Exists(root) {
		return nil, nil, fmt.Errorf("%w: patch_dir %s", fsutil.ErrNotFound, root)
	}

	measure := filepath.FromSlash(d.cfg.Input.Measure)
	outRoot := filepath.Join(d.cfg.Output.Dir, d.cfg.Output.DatasetName, measure)
	ext := d.format.Extension()

	var jobs []Job
	var diags []Diagnostic
	skip := func(path string, err error) {
		diags = append(diags, Diagnostic{Path: path, Message: err.Error()})
		d.log.WithField("path", path).WithError(err).Warn("Skipping missing input")
	}

	categories, err := selectDirs(root, d.cfg.Input.Categories, skip)
	if err != nil {
		return nil, nil, err
	}

	for _, category := range categories {
		categoryDir := filepath.Join(root, category)
		sizes, err := selectDirs(categoryDir, d.cfg.Input.PatchSizes, skip)
		if err != nil {
			skip(categoryDir, err)
			continue
		}

		for _, size := range sizes {
			measureDir := filepath.Join(categoryDir, size, measure)
			samples, err := fsutil.Dirs(measureDir)
			if err != nil {
				skip(measureDir, err)
				continue
			}

			for _, sample := range samples {
				jobs = append(jobs, Job{
					Name:       sample,
					SourceDir:  filepath.Join(measureDir, sample),
					OutputPath: filepath.Join(outRoot, size, category, sample+ext),
					Category:   category,
					PatchSize:  size,
				})
			}
		}
	}

	d.log.WithFields(logrus.Fields{
		"samples": len(jobs),
		"skipped": len(diags),
	}).Info("Planned reconstruction")

	return jobs, diags, nil
}

// PlanFlat maps every sample folder directly under patch_dir to
// output_dir/<sample>.<format>
func (d *Driver) PlanFlat() ([]Job, error) {
	root := d.cfg.Input.PatchDir
	samples, err := fsutil.Dirs(root)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(samples))
	for _, sample := range samples {
		jobs = append(jobs, Job{
			Name:       sample,
			SourceDir:  filepath.Join(root, sample),
			OutputPath: filepath.Join(d.cfg.Output.Dir, sample+d.format.Extension()),
		})
	}
	return jobs, nil
}

// selectDirs lists the sub-directories of dir, restricted to wanted when it
// is not empty. Wanted names that do not exist are reported through skip.
func selectDirs(dir string, wanted []string, skip func(string, error)) ([]string, error) {
	dirs, err := fsutil.Dirs(dir)
	if err != nil {
		return nil, err
	}
	if len(wanted) == 0 {
		return dirs, nil
	}

	var selected []string
	for _, name := range wanted {
		if slices.Contains(dirs, name) {
			selected = append(selected, name)
			continue
		}
		path := filepath.Join(dir, name)
		skip(path, fmt.Errorf("%w: %s", fsutil.ErrNotFound, path))
	}
	return selected, nil
}
