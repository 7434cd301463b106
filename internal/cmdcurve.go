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

	"github.com/hoxca/nightcal/internal/archive"
)

// Perform the light curve command: download photometry for the target and render it to PNG
func CmdCurve(ctx context.Context, cfg archive.Config, username, password, target, outName string, width, height int) error {
	c, err := Login(ctx, cfg, username, password)
	if err != nil {
		return err
	}
	res, err := c.Photometry(ctx, target)
	if res.Status == archive.PhotometryRequestFailed && archive.IsUnauthorized(err) {
		if err := Relogin(ctx, c, username, password); err != nil {
			return err
		}
		res, err = c.Photometry(ctx, target)
	}
	switch res.Status {
	case archive.PhotometryRequestFailed:
		if err == nil {
			err = fmt.Errorf("HTTP %d", res.Code)
		}
		return fmt.Errorf("downloading photometry for %s: %w", target, err)
	case archive.PhotometryEmpty:
		LogPrintf("No photometry available for %s\n", target)
		return nil
	}
	LogPrintf("Rendering %d points for %s to %s\n", len(res.Points), target, outName)
	return RenderLightCurve(res.Points, target, outName, width, height)
}
