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
	"errors"
	"fmt"
	"math"

	"github.com/hoxca/nightcal/internal/archive"
	"github.com/hoxca/nightcal/internal/fits"
)

// Parameters for the upload command
type UploadParams struct {
	Target   string  // Archive target name
	RA       float64 // Right ascension in degrees for target creation, NaN to read it from the header
	Dec      float64 // Declination in degrees for target creation, NaN to read it from the header
	Username string  // Credentials, only needed without a valid cached token
	Password string
}

func (p *UploadParams) String() string {
	return fmt.Sprintf("target %s ra %g dec %g", p.Target, p.RA, p.Dec)
}

// Outcome of uploading one file
type UploadOutcome struct {
	FileName      string
	Result        archive.UploadResult
	TargetCreated bool
	Err           error
}

func tokenCache(cfg archive.Config) string {
	if cfg.TokenCache == "" {
		return archive.DefaultTokenCache()
	}
	return cfg.TokenCache
}

// Get an archive token from the cache, or by authenticating and caching the new token
func Login(ctx context.Context, cfg archive.Config, username, password string) (*archive.Client, error) {
	if user, token, ok := archive.LoadToken(tokenCache(cfg)); ok && (username == "" || username == user) {
		LogPrintf("Using cached token for %s\n", user)
		return archive.NewClient(cfg, token), nil
	}
	c := archive.NewClient(cfg, "")
	if err := authenticate(ctx, c, username, password); err != nil {
		return nil, fmt.Errorf("no valid cached token: %w", err)
	}
	return c, nil
}

// Replace a token the archive refused: drop it from the cache and authenticate again
func Relogin(ctx context.Context, c *archive.Client, username, password string) error {
	LogPrintf("Archive refused the token, deleting the cached token\n")
	if err := archive.DeleteToken(tokenCache(c.Config)); err != nil {
		LogPrintf("Warning: could not delete cached token: %s\n", err)
	}
	c.Token = ""
	if err := authenticate(ctx, c, username, password); err != nil {
		return fmt.Errorf("token refused: %w", err)
	}
	return nil
}

func authenticate(ctx context.Context, c *archive.Client, username, password string) error {
	if username == "" {
		username = c.Config.Username
	}
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	token, err := c.Authenticate(ctx, username, password)
	if err != nil {
		return fmt.Errorf("authenticating %s: %w", username, err)
	}
	if err := archive.SaveToken(tokenCache(c.Config), username, token); err != nil {
		LogPrintf("Warning: could not cache token: %s\n", err)
	}
	return nil
}

// Upload files to the archive. A file rejected for a missing target creates the target
// and is retried once. A refused token is replaced by authenticating again, once per run.
func UploadFiles(ctx context.Context, c *archive.Client, fileNames []string, p *UploadParams) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(fileNames))
	created, relogged := false, false

	// a refused token is replaced once per run, then the upload is retried
	upload := func(fileName string) (archive.UploadResult, error) {
		res, err := c.Upload(ctx, fileName, p.Target)
		if err != nil || !res.Unauthorized() || relogged {
			return res, err
		}
		relogged = true
		if err := Relogin(ctx, c, p.Username, p.Password); err != nil {
			return res, err
		}
		return c.Upload(ctx, fileName, p.Target)
	}
	for _, fileName := range fileNames {
		if ctx.Err() != nil {
			outcomes = append(outcomes, UploadOutcome{FileName: fileName, Err: ctx.Err()})
			continue
		}
		o := UploadOutcome{FileName: fileName}
		o.Result, o.Err = upload(fileName)
		if o.Err == nil && o.Result.Status == archive.UploadTargetMissing && !created {
			if err := createTargetFor(ctx, c, fileName, p); err != nil {
				o.Err = err
			} else {
				created, o.TargetCreated = true, true
				o.Result, o.Err = upload(fileName)
			}
		}
		if o.Err != nil {
			LogPrintf("failed   %s: %s\n", fileName, o.Err)
		} else {
			LogPrintf("%-8s %s: %s\n", o.Result.Status, fileName, o.Result.Reason)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func createTargetFor(ctx context.Context, c *archive.Client, fileName string, p *UploadParams) error {
	ra, dec := p.RA, p.Dec
	if math.IsNaN(ra) || math.IsNaN(dec) {
		h, err := fits.ReadHeaderFile(fileName)
		if err != nil {
			return err
		}
		hra, hdec, err := HeaderCoordinates(h)
		if err != nil {
			return fmt.Errorf("target %s missing and no coordinates given: %w", p.Target, err)
		}
		if math.IsNaN(ra) {
			ra = hra
		}
		if math.IsNaN(dec) {
			dec = hdec
		}
	}
	LogPrintf("Creating target %s at ra %.5f dec %.5f\n", p.Target, ra, dec)
	return c.CreateTarget(ctx, archive.NewTarget(p.Target, ra, dec))
}

// Perform the upload command
func CmdUpload(ctx context.Context, fileNames []string, cfg archive.Config, p *UploadParams) error {
	if p.Target == "" {
		return errors.New("target name required")
	}
	LogPrintf("Uploading %d files to %s with %s\n", len(fileNames), cfg.UploadURL, p)
	c, err := Login(ctx, cfg, p.Username, p.Password)
	if err != nil {
		return err
	}
	failed := 0
	for _, o := range UploadFiles(ctx, c, fileNames, p) {
		if o.Err != nil || o.Result.Status != archive.UploadSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(fileNames))
	}
	return nil
}
