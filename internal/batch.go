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
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// Total physical memory in MiB
func TotalMiBs() int64 {
	return int64(memory.TotalMemory() / 1024 / 1024)
}

// Number of logical CPU cores, falling back to the Go runtime's count
func LogicalCores() int {
	if cpuid.CPU.LogicalCores > 0 {
		return cpuid.CPU.LogicalCores
	}
	return runtime.NumCPU()
}

// Number of light frames to calibrate concurrently. Bounded by the logical cores and by
// the memory budget: the shared masters are resident once, and each worker holds the loaded
// light frame, its calibrated copy and a statistics buffer. Always at least 1.
func ImageLevelParallelism(pixels int64, numMasters int, memoryMiBs int64) int {
	cores := LogicalCores()
	if pixels <= 0 || memoryMiBs <= 0 {
		return cores
	}
	bytesPerPixel := int64(8)
	mastersBytes := pixels * bytesPerPixel * int64(numMasters)
	bytesPerFrame := 3 * pixels * bytesPerPixel
	budget := memoryMiBs*1024*1024 - mastersBytes
	byMemory := int(budget / bytesPerFrame)
	p := cores
	if byMemory < p {
		p = byMemory
	}
	if p < 1 {
		p = 1
	}
	return p
}
