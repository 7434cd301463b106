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
	"runtime/debug"
)

// Perform the calibration command: classify the given files, build masters, calibrate
// and optionally write the light frames, then log the session report.
func CmdCalibrate(ctx context.Context, fileNames []string, p CalibrateParams) (*SessionReport, error) {
	s := NewSession(p)
	res, err := s.Run(ctx, fileNames)
	debug.FreeOSMemory()

	rep := res.Report()
	if err != nil {
		rep.Error = err.Error()
	}
	rep.Log()
	return rep, err
}
