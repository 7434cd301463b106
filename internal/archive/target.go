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
	"net/http"
)

// A target to be created in the archive
type Target struct {
	Name           string  `json:"name"`
	RA             float64 `json:"ra"`
	Dec            float64 `json:"dec"`
	Epoch          float64 `json:"epoch"`
	Classification string  `json:"classification"`
	DiscoveryDate  string  `json:"discovery_date"`
	Importance     float64 `json:"importance"`
	Cadence        float64 `json:"cadence"`
}

// Target at the given coordinates in degrees, with the archive's customary defaults
func NewTarget(name string, ra, dec float64) Target {
	return Target{
		Name:           name,
		RA:             ra,
		Dec:            dec,
		Epoch:          2000.0,
		Classification: "Unknown",
		DiscoveryDate:  "2023-01-01T00:00:01Z",
		Importance:     9.97,
		Cadence:        1.0,
	}
}

// Create a target. Only HTTP 201 counts as success
func (c *Client) CreateTarget(ctx context.Context, t Target) error {
	code, body, err := c.postJSON(ctx, c.url("/targets/createTarget/"), t)
	if err != nil {
		return err
	}
	if code != http.StatusCreated {
		return statusError(code, body)
	}
	return nil
}
