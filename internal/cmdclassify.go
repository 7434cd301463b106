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
	"strings"
)

// Perform the classification command: log the frame type of every file, grouped by type
func CmdClassify(fileNames []string, keys []string) (*FrameSets, []Failure) {
	if len(keys) == 0 {
		keys = DefaultFrameTypeKeys
	}
	LogPrintf("Classifying %d files by %s:\n", len(fileNames), strings.Join(keys, ","))
	sets, failures := ClassifyBatch(fileNames, keys)
	for _, t := range []FrameType{Light, Dark, Flat, Bias} {
		names := sets.Of(t)
		LogPrintf("%-5s %d\n", t, len(names))
		for _, n := range names {
			LogPrintf("      %s\n", n)
		}
	}
	for _, f := range failures {
		LogPrintf("failed %s\n", f)
	}
	return sets, failures
}
