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

import "testing"

func TestImageLevelParallelism(t *testing.T) {
	cores := LogicalCores()
	if got := ImageLevelParallelism(0, 3, 1024); got != cores {
		t.Errorf("unknown size: %d, want %d", got, cores)
	}
	// 16 Mpixel frames take 128 MiB each, three masters 384 MiB, workers 384 MiB each
	if got := ImageLevelParallelism(16*1024*1024, 3, 1024); got != 1 {
		t.Errorf("tight memory: %d, want 1", got)
	}
	if got := ImageLevelParallelism(16*1024*1024, 3, 100); got != 1 {
		t.Errorf("insufficient memory: %d, want at least 1", got)
	}
	if got := ImageLevelParallelism(1024, 0, 1<<20); got != cores {
		t.Errorf("ample memory: %d, want %d", got, cores)
	}
}
