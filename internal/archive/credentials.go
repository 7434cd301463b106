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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Cached tokens expire after this duration
const TokenExpiry = 24 * time.Hour

var timeNow = time.Now

type cachedToken struct {
	Username string    `yaml:"username"`
	Token    string    `yaml:"token"`
	Saved    time.Time `yaml:"saved"`
}

// Default location of the token cache, in the user's configuration directory
func DefaultTokenCache() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credentials.yaml"
	}
	return filepath.Join(dir, "nightcal", "credentials.yaml")
}

// Save a token for later sessions. Passwords are never stored
func SaveToken(fileName, username, token string) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cachedToken{Username: username, Token: token, Saved: timeNow()})
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fileName, data, 0600)
}

// Load a cached token. Missing, unreadable and expired caches report ok=false
func LoadToken(fileName string) (username, token string, ok bool) {
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return "", "", false
	}
	var c cachedToken
	if err := yaml.Unmarshal(data, &c); err != nil || c.Token == "" {
		return "", "", false
	}
	if timeNow().Sub(c.Saved) >= TokenExpiry {
		return "", "", false
	}
	return c.Username, c.Token, true
}

// Delete the token cache. A missing cache is not an error
func DeleteToken(fileName string) error {
	err := os.Remove(fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
