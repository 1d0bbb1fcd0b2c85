// Package report writes a JSON record of a merge run next to its output.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rig-merger/internal/pipeline"
)

// Inputs names the files a run started from.
type Inputs struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Metadata string `json:"metadata"`
}

// Report is one run. Error is set when the run failed; the pipeline fields then hold whatever
// finished before the failure.
type Report struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	Inputs        Inputs    `json:"inputs"`
	OrphanPolicy  string    `json:"orphan_policy"`
	RotationUnits string    `json:"rotation_units"`
	DryRun        bool      `json:"dry_run"`
	Preview       string    `json:"preview,omitempty"`
	Error         string    `json:"error,omitempty"`

	pipeline.Result
}

// New starts a report with a fresh run id.
func New(in Inputs) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Inputs:    in,
	}
}

// Finish records the pipeline outcome and the elapsed time.
func (r *Report) Finish(res pipeline.Result, err error) {
	r.Result = res
	if err != nil {
		r.Error = err.Error()
	}
	r.Duration = time.Since(r.StartedAt).Round(time.Millisecond).String()
}

// Write writes the report as indented JSON, creating the parent directory.
func Write(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("report: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
