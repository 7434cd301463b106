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

package archive

import (
	"context"
	"encoding/json"
	"fmt"
)

// One photometric measurement of a target
type LightCurvePoint struct {
	Time      float64 `json:"time"`            // Observation time, MJD
	Magnitude float64 `json:"magnitude"`       // Calibrated magnitude
	Error     float64 `json:"error,omitempty"` // Magnitude error, if known
}

type PhotometryStatus int

const (
	PhotometryPoints PhotometryStatus = iota
	PhotometryEmpty
	PhotometryRequestFailed
)

func (s PhotometryStatus) String() string {
	switch s {
	case PhotometryPoints:
		return "Points"
	case PhotometryEmpty:
		return "Empty"
	}
	return "RequestFailed"
}

// Light curve of a target, or why there is none
type PhotometryResult struct {
	Status PhotometryStatus
	Points []LightCurvePoint
	Code   int // HTTP status code for RequestFailed, 0 if the request did not complete
}

// Download the light curve of a target. Errors are reported as RequestFailed,
// with the underlying error returned for logging.
func (c *Client) Photometry(ctx context.Context, target string) (PhotometryResult, error) {
	code, body, err := c.postJSON(ctx, c.url(c.Config.PhotometryPath), map[string]string{"name": target})
	if err != nil {
		return PhotometryResult{Status: PhotometryRequestFailed}, err
	}
	if code != 200 {
		return PhotometryResult{Status: PhotometryRequestFailed, Code: code}, statusError(code, body)
	}
	var points []LightCurvePoint
	if err := json.Unmarshal(body, &points); err != nil {
		return PhotometryResult{Status: PhotometryRequestFailed, Code: code}, fmt.Errorf("decoding photometry: %w", err)
	}
	if len(points) == 0 {
		return PhotometryResult{Status: PhotometryEmpty}, nil
	}
	return PhotometryResult{Status: PhotometryPoints, Points: points}, nil
}
