// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hoxca/nightcal/internal/fits"
)

// Parameters for a calibration session
type CalibrateParams struct {
	FrameTypeKeys []string     `json:"frameTypeKeys" yaml:"frameTypeKeys"` // Header keys holding the frame type, in order of preference
	Write         bool         `json:"write"         yaml:"write"`         // Write calibrated frames to disk
	Output        OutputParams `json:"output"        yaml:"output"`
	Memory        int64        `json:"memory"        yaml:"memory"`      // Memory budget in MiB. 0 uses 70% of physical memory
	Parallelism   int          `json:"parallelism"   yaml:"parallelism"` // Concurrent light frames. 0 derives it from cores and memory
}

// Print parameters for a calibration session
func (p *CalibrateParams) String() string {
	return fmt.Sprintf("frameTypeKeys %s write %v %s memory %d parallelism %d",
		strings.Join(p.frameTypeKeys(), ","), p.Write, &p.Output, p.Memory, p.Parallelism)
}

func (p *CalibrateParams) frameTypeKeys() []string {
	if len(p.FrameTypeKeys) == 0 {
		return DefaultFrameTypeKeys
	}
	return p.FrameTypeKeys
}

// A calibration session: classifies raw files, builds master frames and calibrates the
// light frames with them. Masters live only for the duration of one Run.
type Session struct {
	ID     string
	Params CalibrateParams
}

func NewSession(p CalibrateParams) *Session {
	return &Session{ID: uuid.New().String(), Params: p}
}

// Outcome of a session run
type SessionResult struct {
	ID          string
	Sets        *FrameSets
	Calibrated  []*CalibratedImage
	Failures    []Failure
	Corrections []CorrectionStatus
	Started     time.Time
	Finished    time.Time
}

// Run the session on the given raw files. Every light frame is attempted, failures are
// recorded in the result. Only the absence of light frames aborts the session, before
// any master is built. On cancellation the partial result is returned with the context error.
func (s *Session) Run(ctx context.Context, fileNames []string) (*SessionResult, error) {
	res := &SessionResult{ID: s.ID, Started: time.Now()}
	defer func() { res.Finished = time.Now() }()

	LogPrintf("Session %s: classifying %d files with %s\n", s.ID, len(fileNames), &s.Params)
	sets, failures := ClassifyBatch(fileNames, s.Params.frameTypeKeys())
	res.Sets, res.Failures = sets, failures
	LogPrintf("Found %d light, %d dark, %d flat and %d bias frames, %d unreadable\n",
		len(sets.Light), len(sets.Dark), len(sets.Flat), len(sets.Bias), len(failures))
	if len(sets.Light) == 0 {
		return res, ErrNoLightFrames
	}

	masters := &Masters{}
	if err := ctx.Err(); err == nil {
		masters, res.Corrections = BuildMasters(sets, LogicalCores())
	} else {
		res.Corrections = cancelledCorrections(sets, err)
	}

	var out *OutputParams
	if s.Params.Write {
		out = &s.Params.Output
	}
	parallelism := s.parallelism(sets, masters)
	LogPrintf("\nCalibrating %d light frames, %d at a time:\n", len(sets.Light), parallelism)
	lights, lightFailures := PreProcessLights(ctx, sets.Light, masters, out, parallelism)
	res.Calibrated = lights
	res.Failures = append(res.Failures, lightFailures...)
	LogPrintf("Calibrated %d of %d light frames, %d failures\n", len(lights), len(sets.Light), len(res.Failures))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Corrections skipped because the session was cancelled before masters were built
func cancelledCorrections(sets *FrameSets, err error) []CorrectionStatus {
	statuses := make([]CorrectionStatus, 0, 3)
	for _, t := range []FrameType{Bias, Dark, Flat} {
		statuses = append(statuses, CorrectionStatus{
			Type: t, Frames: len(sets.Of(t)), Kind: KindCancelled,
			Reason: fmt.Sprintf("%s: %v", ErrCancelled, err),
		})
	}
	return statuses
}

func (s *Session) parallelism(sets *FrameSets, m *Masters) int {
	if s.Params.Parallelism > 0 {
		return s.Params.Parallelism
	}
	var naxisn []int32
	numMasters := 0
	for _, master := range []*fits.Image{m.Bias, m.Dark, m.Flat} {
		if master != nil {
			naxisn = master.Naxisn
			numMasters++
		}
	}
	if naxisn == nil {
		naxisn, _ = fits.ReadAxesFile(sets.Light[0])
	}
	pixels := int64(1)
	for _, n := range naxisn {
		pixels *= int64(n)
	}
	if len(naxisn) == 0 {
		pixels = 0
	}
	memoryMiBs := s.Params.Memory
	if memoryMiBs <= 0 {
		memoryMiBs = TotalMiBs() * 7 / 10
	}
	return ImageLevelParallelism(pixels, numMasters, memoryMiBs)
}

// Corrections applied to the light frames, e.g. [Bias Flat]
func (r *SessionResult) Applied() (applied []FrameType) {
	for _, c := range r.Corrections {
		if c.Applied {
			applied = append(applied, c.Type)
		}
	}
	return applied
}

// Per-frame line of a session report
type FrameReport struct {
	Source    string      `json:"source"`
	Output    string      `json:"output,omitempty"`
	Applied   []FrameType `json:"applied"`
	Sanitized int         `json:"sanitized"`
}

// Summary of a session result without pixel data, for display and the HTTP API
type SessionReport struct {
	ID          string             `json:"id"`
	Sets        *FrameSets         `json:"sets"`
	Calibrated  []FrameReport      `json:"calibrated"`
	Failures    []Failure          `json:"failures"`
	Corrections []CorrectionStatus `json:"corrections"`
	Seconds     float64            `json:"seconds"`
	Error       string             `json:"error,omitempty"`
}

func (r *SessionResult) Report() *SessionReport {
	rep := &SessionReport{
		ID:          r.ID,
		Sets:        r.Sets,
		Calibrated:  make([]FrameReport, 0, len(r.Calibrated)),
		Failures:    append([]Failure{}, r.Failures...),
		Corrections: append([]CorrectionStatus{}, r.Corrections...),
		Seconds:     r.Finished.Sub(r.Started).Seconds(),
	}
	for _, c := range r.Calibrated {
		rep.Calibrated = append(rep.Calibrated, FrameReport{
			Source: c.SourceFile, Output: c.OutputFile, Applied: c.Applied, Sanitized: c.Sanitized,
		})
	}
	return rep
}

// Log a human readable report: successes, failures and corrections applied or skipped
func (rep *SessionReport) Log() {
	LogPrintf("\nSession %s finished in %.1fs\n", rep.ID, rep.Seconds)
	for _, c := range rep.Corrections {
		LogPrintf("  %s\n", c)
	}
	for _, f := range rep.Calibrated {
		if f.Output != "" {
			LogPrintf("  ok     %s -> %s\n", f.Source, f.Output)
		} else {
			LogPrintf("  ok     %s\n", f.Source)
		}
	}
	for _, f := range rep.Failures {
		LogPrintf("  failed %s\n", f)
	}
}
