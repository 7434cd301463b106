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
	"sync"

	"github.com/hoxca/nightcal/internal/fits"
	"github.com/hoxca/nightcal/internal/stats"
)

// Statistics line for one file
type FileStats struct {
	FileName string
	Type     FrameType
	Naxisn   []int32
	Stats    string
	Err      error
}

// Perform the statistics command: load each file, classify it and log its dimensions and
// pixel statistics. Frames without usable variation are flagged, as a master built from
// them would not calibrate anything.
func CmdStats(fileNames []string, keys []string, parallelism int) []FileStats {
	if len(keys) == 0 {
		keys = DefaultFrameTypeKeys
	}
	if parallelism <= 0 {
		parallelism = LogicalCores()
	}
	LogPrintf("\nCalculating statistics for %d frames, %d at a time:\n", len(fileNames), parallelism)

	res := make([]FileStats, len(fileNames))
	var mu sync.Mutex // keeps per-file log lines together
	sem := make(chan bool, parallelism)
	for id, fileName := range fileNames {
		sem <- true
		go func(id int, fileName string) {
			defer func() { <-sem }()
			fs := FileStats{FileName: fileName}
			img, err := fits.ReadFile(fileName)
			if err != nil {
				fs.Err = err
				res[id] = fs
				mu.Lock()
				LogPrintf("%d: Error: %s\n", id, err.Error())
				mu.Unlock()
				return
			}
			img.ID = id
			img.Stats = stats.CalcStats(img.Data)
			fs.Type, fs.Naxisn, fs.Stats = Classify(img.Header, keys), img.Naxisn, img.Stats.String()
			res[id] = fs

			mu.Lock()
			LogPrintf("%d: %s %s %s %s\n", id, fileName, fs.Type, img.DimensionsToString(), img.Stats)
			if img.Stats.Degenerate() {
				LogPrintf("%d: Warning: %s has no usable variation\n", id, fileName)
			}
			mu.Unlock()
		}(id, fileName)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
	return res
}
