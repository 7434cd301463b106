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
	"math"

	"github.com/hoxca/nightcal/internal/fits"
	"github.com/hoxca/nightcal/internal/stats"
	"gonum.org/v1/gonum/floats"
)

// A light frame after calibration. The header is the one of the original light frame,
// as acquisition metadata matters downstream, not reduction metadata.
type CalibratedImage struct {
	*fits.Image
	SourceFile string      // File the light frame was loaded from
	OutputFile string      // File the calibrated image was written to, if any
	Applied    []FrameType // Corrections applied, in order
	Sanitized  int         // Number of NaN or infinite samples replaced with zero
}

// Calibrate a single light frame. In this fixed order: subtract master bias, subtract master dark,
// divide by master flat, each step only if its master is present. Finally every NaN or infinite
// sample is replaced with zero. The light frame itself is not modified.
func CalibrateLight(light *fits.Image, m *Masters) (*CalibratedImage, error) {
	if m == nil {
		m = &Masters{}
	}
	for _, master := range []*fits.Image{m.Bias, m.Dark, m.Flat} {
		if master != nil && !master.SameShape(light) {
			return nil, shapeMismatch(fmt.Sprintf("light %s", light.FileName), light, master)
		}
	}

	res := light.Clone()
	c := &CalibratedImage{Image: res, SourceFile: light.FileName}

	if m.Bias != nil {
		floats.Sub(res.Data, m.Bias.Data)
		c.Applied = append(c.Applied, Bias)
	}
	if m.Dark != nil {
		floats.Sub(res.Data, m.Dark.Data)
		c.Applied = append(c.Applied, Dark)
	}
	if m.Flat != nil {
		floats.Div(res.Data, m.Flat.Data)
		c.Applied = append(c.Applied, Flat)
	}
	c.Sanitized = SanitizeNonFinite(res.Data)
	return c, nil
}

// Replace NaN and infinite values with zero, returning the number of replacements
func SanitizeNonFinite(data []float64) (replaced int) {
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = 0
			replaced++
		}
	}
	return replaced
}

// Calibrate all light frames with the given masters, limiting concurrency to the given parallelism.
// Every frame is attempted; failures are collected rather than aborting the batch. Cancellation
// is checked before each frame; frames not started by then are reported as cancelled.
// Results keep the order of the input files.
func PreProcessLights(ctx context.Context, fileNames []string, m *Masters, out *OutputParams,
	imageLevelParallelism int) (lights []*CalibratedImage, failures []Failure) {
	if imageLevelParallelism < 1 {
		imageLevelParallelism = 1
	}
	results := make([]*CalibratedImage, len(fileNames))
	errs := make([]error, len(fileNames))
	sem := make(chan bool, imageLevelParallelism)
	for id, fileName := range fileNames {
		if err := ctx.Err(); err != nil {
			errs[id] = fmt.Errorf("%w before processing: %v", ErrCancelled, err)
			continue
		}
		sem <- true
		go func(id int, fileName string) {
			defer func() { <-sem }()
			lightP, err := PreProcessLight(id, fileName, m)
			if err == nil && out != nil {
				err = out.Write(lightP)
			}
			if err != nil {
				LogPrintf("%d: Error: %s\n", id, err.Error())
				errs[id] = err
				return
			}
			results[id] = lightP
		}(id, fileName)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}

	for i, fileName := range fileNames {
		if errs[i] != nil {
			failures = append(failures, NewFailure(fileName, errs[i]))
		} else if results[i] != nil {
			lights = append(lights, results[i])
		}
	}
	return lights, failures
}

// Load and calibrate a single light frame
func PreProcessLight(id int, fileName string, m *Masters) (*CalibratedImage, error) {
	light, err := fits.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	light.ID = id

	c, err := CalibrateLight(light, m)
	if err != nil {
		return nil, err
	}
	c.Stats = stats.CalcStats(c.Data)
	LogPrintf("%d: Light %s %s applied %v, %v\n", id, fileName, c.DimensionsToString(), c.Applied, c.Stats)
	if c.Sanitized > 0 {
		LogPrintf("%d: Replaced %d NaN or infinite pixels (%.2f%%) with zero\n",
			id, c.Sanitized, 100.0*float32(c.Sanitized)/float32(c.Pixels))
	}
	return c, nil
}
