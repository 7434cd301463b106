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

package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistics of an image, ignoring NaN samples
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
	Valid  int // Number of non-NaN samples
	NaNs   int // Number of NaN samples
}

// Calculate basic statistics. For data without valid samples, all values are NaN
func CalcStats(data []float64) *Stats {
	valid := AppendValid(make([]float64, 0, len(data)), data)
	s := &Stats{Valid: len(valid), NaNs: len(data) - len(valid)}
	if len(valid) == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.StdDev, s.Median = nan, nan, nan, nan, nan
		return s
	}
	s.Min, s.Max = floats.Min(valid), floats.Max(valid)
	if len(valid) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)
	} else {
		s.Mean = valid[0]
	}
	s.Median = MedianInPlace(valid)
	return s
}

// Degenerate means no spread at all, e.g. a constant frame from a stuck readout
func (s *Stats) Degenerate() bool {
	return s.Valid == 0 || s.StdDev < 1e-8
}

func (s *Stats) String() string {
	return fmt.Sprintf("min %.4g max %.4g mean %.4g stddev %.4g median %.4g nans %d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.NaNs)
}
