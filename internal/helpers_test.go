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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoxca/nightcal/internal/fits"
)

func TestMain(m *testing.M) {
	SetLogWriter(ioutil.Discard)
	os.Exit(m.Run())
}

// Image of the given dimensions with the given pixel values and frame type
func testFrame(imageType string, naxisn []int32, data []float64) *fits.Image {
	img := fits.NewImageFromNaxisn(naxisn, data)
	if imageType != "" {
		img.Header.Set("IMAGETYP", imageType, "")
	}
	return img
}

// Constant image of the given dimensions
func constFrame(imageType string, naxisn []int32, v float64) *fits.Image {
	img := testFrame(imageType, naxisn, nil)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

// Write an image to a FITS file in dir, returning the file name
func writeFrame(t *testing.T, dir, name string, img *fits.Image) string {
	t.Helper()
	fileName := filepath.Join(dir, name)
	if err := fits.WriteFile(img, fileName); err != nil {
		t.Fatal(err)
	}
	return fileName
}

func assertData(t *testing.T, what string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: %d pixels, want %d", what, len(got), len(want))
	}
	for i := range want {
		if d := got[i] - want[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("%s: pixel %d = %g, want %g", what, i, got[i], want[i])
		}
	}
}
