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

// Package archive is a client for a BHTOM style photometry archive: token authentication,
// upload of calibrated frames, target creation and light curve download.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "https://bh-tom2.astrolabs.pl"
	DefaultUploadURL      = "https://uploadsvc2.astrolabs.pl/upload/"
	DefaultPhotometryPath = "/targets/download-photometry/"
	DefaultObservatory    = "AZT-8_C4-16000"
	DefaultFilter         = "GaiaSP/any"
)

// Archive settings
type Config struct {
	BaseURL        string `yaml:"baseURL"`
	UploadURL      string `yaml:"uploadURL"`
	PhotometryPath string `yaml:"photometryPath"`
	Observatory    string `yaml:"observatory"`
	Filter         string `yaml:"filter"`
	DryRun         bool   `yaml:"dryRun"`
	Username       string `yaml:"username"`
	TokenCache     string `yaml:"tokenCache"`
	TimeoutS       int    `yaml:"timeoutS"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UploadURL:      DefaultUploadURL,
		PhotometryPath: DefaultPhotometryPath,
		Observatory:    DefaultObservatory,
		Filter:         DefaultFilter,
		TokenCache:     DefaultTokenCache(),
		TimeoutS:       300,
	}
}

// Print archive settings. The token is never printed
func (c *Config) String() string {
	return fmt.Sprintf("baseURL %s uploadURL %s observatory %s filter %s dryRun %v user %s",
		c.BaseURL, c.UploadURL, c.Observatory, c.Filter, c.DryRun, c.Username)
}

// Client for the archive API. Token may be empty for authentication calls
type Client struct {
	Config Config
	Token  string
	HTTP   *http.Client
}

func NewClient(cfg Config, token string) *Client {
	timeout := time.Duration(cfg.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{Config: cfg, Token: token, HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.Config.BaseURL, "/") + path
}

// POST a JSON body, returning status code and response body
func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, 16<<20))
	return resp.StatusCode, body, err
}

// Error for unexpected HTTP responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// IsUnauthorized tells whether err is an HTTP 401 answer, i.e. the token was refused
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

func statusError(code int, body []byte) *StatusError {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return &StatusError{Code: code, Body: s}
}
