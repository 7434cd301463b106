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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hoxca/nightcal/internal/fits"
)

const DefaultCalibratedSuffix = "_calibrated"

// Parameters for writing calibrated light frames
type OutputParams struct {
	OutDir string `json:"outDir" yaml:"outDir"` // Target directory. Empty writes next to each input file
	Suffix string `json:"suffix" yaml:"suffix"` // Inserted before the file extension
}

// Print parameters for writing calibrated frames
func (p *OutputParams) String() string {
	outDir := p.OutDir
	if outDir == "" {
		outDir = "<input dir>"
	}
	return fmt.Sprintf("outDir %s suffix %s", outDir, p.suffix())
}

func (p *OutputParams) suffix() string {
	if p.Suffix == "" {
		return DefaultCalibratedSuffix
	}
	return p.Suffix
}

// Derive the output file name for an input, e.g. m42_001.fits becomes m42_001_calibrated.fits
func CalibratedFileName(fileName, suffix string) string {
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + suffix + ext
}

// Output file name for the given input file
func (p *OutputParams) FileNameFor(fileName string) string {
	out := CalibratedFileName(fileName, p.suffix())
	if p.OutDir != "" {
		out = filepath.Join(p.OutDir, filepath.Base(out))
	}
	return out
}

// Write the calibrated image, verifying the file afterwards, and record its name
func (p *OutputParams) Write(c *CalibratedImage) error {
	if p.OutDir != "" {
		if err := os.MkdirAll(p.OutDir, 0755); err != nil {
			return &fits.IOError{Op: "write", Path: p.OutDir, Err: err}
		}
	}
	fileName := p.FileNameFor(c.SourceFile)
	if err := fits.WriteFile(c.Image, fileName); err != nil {
		return err
	}
	c.OutputFile = fileName
	LogPrintf("%d: Wrote %s\n", c.ID, fileName)
	return nil
}
