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
	"fmt"
	"math"
	"runtime"

	"github.com/hoxca/nightcal/internal/fits"
	"github.com/hoxca/nightcal/internal/stats"
	"gonum.org/v1/gonum/floats"
)

// By convention, master frames carry negative IDs in log output
const (
	DarkID = -1
	FlatID = -2
	BiasID = -3
)

// Master frames for one calibration session. Nil entries mean the correction is skipped.
// Masters are read-only once built and shared by all light frame workers.
type Masters struct {
	Bias *fits.Image
	Dark *fits.Image
	Flat *fits.Image
}

// Outcome of building the master frame for one correction
type CorrectionStatus struct {
	Type    FrameType `json:"type"`
	Frames  int       `json:"frames"`
	Applied bool      `json:"applied"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

func (c CorrectionStatus) String() string {
	if c.Applied {
		return fmt.Sprintf("%s applied from %d frames", c.Type, c.Frames)
	}
	return fmt.Sprintf("%s skipped: %s", c.Type, c.Reason)
}

// Median-combine frames pixel by pixel. NaN samples are ignored; a pixel without
// any valid sample becomes NaN. All frames must share the same dimensions.
func MedianCombine(frames []*fits.Image) (*fits.Image, error) {
	if len(frames) == 0 {
		return nil, ErrInsufficientData
	}
	ref := frames[0]
	for _, f := range frames[1:] {
		if !f.SameShape(ref) {
			return nil, shapeMismatch("frame "+f.FileName, f, ref)
		}
	}
	res := fits.NewImageFromNaxisn(ref.Naxisn, nil)
	if len(frames) == 1 {
		copy(res.Data, ref.Data)
		return res, nil
	}

	// Split the pixel range into chunks, limiting concurrency to the number of available CPUs
	n := len(res.Data)
	numChunks := runtime.GOMAXPROCS(0)
	chunkSize := (n + numChunks - 1) / numChunks
	sem := make(chan bool, numChunks)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		sem <- true
		go func(start, end int) {
			defer func() { <-sem }()
			samples := make([]float64, 0, len(frames))
			for i := start; i < end; i++ {
				samples = samples[:0]
				for _, f := range frames {
					if v := f.Data[i]; !math.IsNaN(v) {
						samples = append(samples, v)
					}
				}
				res.Data[i] = stats.MedianInPlace(samples)
			}
		}(start, end)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
	return res, nil
}

// Build the master bias as per-pixel median of the bias frames
func BuildBias(biases []*fits.Image) (*fits.Image, error) {
	bias, err := MedianCombine(biases)
	if err != nil {
		return nil, fmt.Errorf("master bias: %w", err)
	}
	finishMaster(bias, BiasID, "Master Bias", len(biases))
	return bias, nil
}

// Build the master dark as per-pixel median of the dark frames, minus the master bias if given
func BuildDark(darks []*fits.Image, bias *fits.Image) (*fits.Image, error) {
	dark, err := MedianCombine(darks)
	if err != nil {
		return nil, fmt.Errorf("master dark: %w", err)
	}
	if bias != nil {
		if !dark.SameShape(bias) {
			return nil, fmt.Errorf("master dark: %w", shapeMismatch("bias", bias, dark))
		}
		floats.Sub(dark.Data, bias.Data)
	}
	finishMaster(dark, DarkID, "Master Dark", len(darks))
	return dark, nil
}

// Build the master flat as per-pixel median of the flat frames, minus master bias and master dark
// if given, normalized by its own median after subtraction. Fails if that median is zero.
func BuildFlat(flats []*fits.Image, bias, dark *fits.Image) (*fits.Image, error) {
	flat, err := MedianCombine(flats)
	if err != nil {
		return nil, fmt.Errorf("master flat: %w", err)
	}
	if bias != nil {
		if !flat.SameShape(bias) {
			return nil, fmt.Errorf("master flat: %w", shapeMismatch("bias", bias, flat))
		}
		floats.Sub(flat.Data, bias.Data)
	}
	if dark != nil {
		if !flat.SameShape(dark) {
			return nil, fmt.Errorf("master flat: %w", shapeMismatch("dark", dark, flat))
		}
		floats.Sub(flat.Data, dark.Data)
	}

	median := stats.Median(flat.Data)
	if median == 0 || math.IsNaN(median) {
		return nil, fmt.Errorf("master flat: %w (median %g)", ErrDegenerateFlat, median)
	}
	for i := range flat.Data {
		flat.Data[i] /= median
	}
	finishMaster(flat, FlatID, "Master Flat", len(flats))
	flat.Header.Set("FLATNORM", median, "median before normalization")
	return flat, nil
}

func finishMaster(m *fits.Image, id int, imageType string, numFrames int) {
	m.ID = id
	m.Header.Set("IMAGETYP", imageType, "")
	m.Header.Set("NCOMBINE", numFrames, "number of frames median-combined")
	m.Stats = stats.CalcStats(m.Data)
	LogPrintf("%d: %s %s from %d frames: %v\n", id, imageType, m.DimensionsToString(), numFrames, m.Stats)
	if m.Stats.Degenerate() {
		LogPrintf("%d: Warning: %s may be degenerate\n", id, imageType)
	}
}

// Load all frames of one type, limiting concurrency. Fails on the first unreadable frame.
func LoadFrames(fileNames []string, id int, parallelism int) ([]*fits.Image, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	frames := make([]*fits.Image, len(fileNames))
	errs := make([]error, len(fileNames))
	sem := make(chan bool, parallelism)
	for i, fileName := range fileNames {
		sem <- true
		go func(i int, fileName string) {
			defer func() { <-sem }()
			f, err := fits.ReadFile(fileName)
			if err != nil {
				errs[i] = err
				return
			}
			f.ID = id
			frames[i] = f
		}(i, fileName)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// Build all masters for which frames exist. Bias comes first, as dark and flat
// subtract it; the flat also subtracts the dark. A master that fails to build is
// skipped and its status records why, the remaining masters are still built.
func BuildMasters(sets *FrameSets, parallelism int) (*Masters, []CorrectionStatus) {
	m := &Masters{}
	statuses := make([]CorrectionStatus, 0, 3)
	for _, t := range []FrameType{Bias, Dark, Flat} {
		fileNames := sets.Of(t)
		status := CorrectionStatus{Type: t, Frames: len(fileNames)}
		if len(fileNames) == 0 {
			status.Kind, status.Reason = KindInsufficientData, "no frames"
			LogPrintf("No %s frames, skipping %s correction\n", t, t)
			statuses = append(statuses, status)
			continue
		}

		master, err := buildMaster(t, fileNames, m, parallelism)
		if err != nil {
			status.Kind, status.Reason = KindOf(err), err.Error()
			LogPrintf("Error: %s, skipping %s correction\n", err, t)
		} else {
			status.Applied = true
			switch t {
			case Bias:
				m.Bias = master
			case Dark:
				m.Dark = master
			case Flat:
				m.Flat = master
			}
		}
		statuses = append(statuses, status)
	}
	return m, statuses
}

func buildMaster(t FrameType, fileNames []string, m *Masters, parallelism int) (*fits.Image, error) {
	id := map[FrameType]int{Bias: BiasID, Dark: DarkID, Flat: FlatID}[t]
	frames, err := LoadFrames(fileNames, id, parallelism)
	if err != nil {
		return nil, err
	}
	switch t {
	case Bias:
		return BuildBias(frames)
	case Dark:
		return BuildDark(frames, m.Bias)
	default:
		return BuildFlat(frames, m.Bias, m.Dark)
	}
}
