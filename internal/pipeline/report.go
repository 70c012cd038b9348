// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"maptools-cli/internal/fsutil"
)

type (
	// Report is the persisted form of a Result.
	Report struct {
		JobID       string          `toml:"job_id"`
		Input       string          `toml:"input"`
		Format      string          `toml:"format"`
		GeneratedAt time.Time       `toml:"generated_at"`
		Summary     string          `toml:"summary"`
		Outputs     ReportOutputs   `toml:"outputs"`
		Counts      ReportCounts    `toml:"counts"`
		Removed     []string        `toml:"removed,omitempty"`
		Warnings    []string        `toml:"warnings,omitempty"`
		Outcomes    []ReportOutcome `toml:"outcome,omitempty"`
	}

	// ReportOutputs lists the produced packages.
	ReportOutputs struct {
		Server string `toml:"server"`
		Client string `toml:"client,omitempty"`
	}

	// ReportCounts holds the audit and rebuild tallies.
	ReportCounts struct {
		Levels    int `toml:"levels"`
		Attempted int `toml:"attempted"`
		Rebuilt   int `toml:"rebuilt"`
		Failed    int `toml:"failed"`
		Removed   int `toml:"removed"`
	}

	// ReportOutcome is one rebuild attempt.
	ReportOutcome struct {
		Map     string `toml:"map"`
		Status  string `toml:"status"`
		Reason  string `toml:"reason,omitempty"`
		Size    int64  `toml:"size"`
		Elapsed string `toml:"elapsed"`
		Error   string `toml:"error,omitempty"`
	}
)

// NewReport builds the report of a finished job.
func NewReport(job Job, res *Result, at time.Time) Report {
	rep := Report{
		JobID:       res.JobID,
		Input:       job.InputPath,
		Format:      job.format().String(),
		GeneratedAt: at.UTC().Truncate(time.Second),
		Summary:     res.Summary(),
		Outputs:     ReportOutputs{Server: res.ServerOutputPath, Client: res.ClientOutputPath},
		Counts: ReportCounts{
			Levels:    res.Levels,
			Attempted: res.Attempted,
			Rebuilt:   res.Rebuilt,
			Failed:    res.Attempted - res.Rebuilt,
			Removed:   len(res.Removed),
		},
		Removed:  res.Removed,
		Warnings: res.Warnings,
	}
	for _, o := range res.Outcomes {
		ro := ReportOutcome{
			Map:     o.Asset.Name,
			Status:  o.Status.String(),
			Reason:  o.Reason,
			Size:    o.Size,
			Elapsed: o.Elapsed.Round(time.Millisecond).String(),
		}
		if o.Err != nil {
			ro.Error = o.Err.Error()
		}
		rep.Outcomes = append(rep.Outcomes, ro)
	}
	return rep
}

// Encode writes the report as TOML.
func (r Report) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(r)
}

// WriteReport writes the report of a finished job to path.
func WriteReport(path string, job Job, res *Result, at time.Time) error {
	rep := NewReport(job, res, at)
	if err := fsutil.WriteFileAtomic(path, 0o644, rep.Encode); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(r io.Reader) (Report, error) {
	var rep Report
	if err := toml.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return rep, nil
}
