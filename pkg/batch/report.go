package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"patchstitch/pkg/stitch"
)

// Result is the outcome of one job
type Result struct {
	Job `yaml:",inline"`

	Grid     stitch.Grid     `yaml:"grid,omitempty"`
	Metrics  *stitch.Metrics `yaml:"metrics,omitempty"`
	Seed     int64           `yaml:"seed,omitempty"`
	Duration time.Duration   `yaml:"duration"`

	// Err is the failure, nil on success
	Err   error  `yaml:"-"`
	Error string `yaml:"error,omitempty"`
}

func (r *Result) setError(err error) {
	r.Err = err
	r.Error = err.Error()
}

// OK reports whether the job produced its output
func (r Result) OK() bool {
	return r.Err == nil
}

// Report summarises a run
type Report struct {
	Started     time.Time     `yaml:"started"`
	Duration    time.Duration `yaml:"duration"`
	Total       int           `yaml:"total"`
	Succeeded   int           `yaml:"succeeded"`
	Failed      int           `yaml:"failed"`
	Skipped     int           `yaml:"skipped"`
	Results     []Result      `yaml:"results"`
	Diagnostics []Diagnostic  `yaml:"diagnostics,omitempty"`
}

// NewReport starts a report timed from now
func NewReport() *Report {
	return &Report{Started: time.Now()}
}

// Add records a job result
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
	r.Total++
	if res.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// AddDiagnostics records inputs skipped while planning
func (r *Report) AddDiagnostics(diags []Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
	r.Skipped = len(r.Diagnostics)
}

// Finish stamps the run duration
func (r *Report) Finish() {
	r.Duration = time.Since(r.Started)
}

// Failures returns the failed results
func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Write saves the report as YAML
func (r *Report) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}
