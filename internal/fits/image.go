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

package fits

import (
	"fmt"
	"strings"

	"github.com/hoxca/nightcal/internal/stats"
)

// A FITS image with a single primary data plane.
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0 for light frames. Masters use -1 dark, -2 flat, -3 bias
	FileName string // Original file name, if any, for log output

	Header *Header // The header with all keys, values and comments
	Bitpix int32   // Bits per pixel value from the file. Positive values are integral, negative floating
	Naxisn []int32 // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32   // Number of pixels in the image. Product of Naxisn[]

	Data []float64 // The image data, with BZERO and BSCALE applied

	Stats *stats.Stats // Basic image statistics, if calculated
}

// Creates an image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float64) *Image {
	numPixels := int32(1)
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	if data == nil {
		data = make([]float64, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -64,
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates a copy of the image with its own data array and header
func (f *Image) Clone() *Image {
	c := NewImageFromNaxisn(f.Naxisn, append([]float64(nil), f.Data...))
	c.ID, c.FileName, c.Bitpix = f.ID, f.FileName, f.Bitpix
	if f.Header != nil {
		c.Header = f.Header.Clone()
	}
	return c
}

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// SameShape tells whether both images have identical axis dimensions
func (f *Image) SameShape(o *Image) bool {
	return EqualInt32Slice(f.Naxisn, o.Naxisn)
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// IOError reports a file that could not be read, written, or verified after writing
type IOError struct {
	Op   string // "read", "write" or "verify"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
