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
	"errors"
)

// Exchange username and password for an API token
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{"username": username, "password": password}
	code, body, err := c.postJSON(ctx, c.url("/api/token-auth/"), payload)
	if err != nil {
		return "", err
	}
	if code < 200 || code >= 300 {
		return "", statusError(code, body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("authentication response without token")
	}
	c.Token = resp.Token
	return resp.Token, nil
}
