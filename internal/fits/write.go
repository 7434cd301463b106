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
	"bufio"
	"errors"
	"os"

	"github.com/astrogo/fitsio"
)

// Write the image as 64-bit float FITS file, then re-open the file and verify
// the primary data plane is present and complete. Silently truncated writes
// are thereby reported as errors.
func WriteFile(f *Image, fileName string) error {
	if err := writeFile(f, fileName); err != nil {
		return &IOError{Op: "write", Path: fileName, Err: err}
	}
	return VerifyFile(fileName, f.Naxisn)
}

func writeFile(img *Image, fileName string) (err error) {
	if len(img.Naxisn) < 2 || img.Pixels <= 0 || len(img.Data) != int(img.Pixels) {
		return errNoDataPlane
	}

	w, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	axes := make([]int, len(img.Naxisn))
	for i, a := range img.Naxisn {
		axes[i] = int(a)
	}
	im := fitsio.NewImage(-64, axes)
	defer im.Close()

	if img.Header != nil {
		cards := make([]fitsio.Card, 0, img.Header.Len())
		for _, c := range img.Header.Cards() {
			if isCommentaryKey(c.Key) {
				cards = append(cards, fitsio.Card{Name: c.Key, Comment: c.Comment})
				continue
			}
			if isStructuralKey(c.Key) || c.Value == nil {
				continue
			}
			value := c.Value
			if i, ok := value.(int64); ok {
				value = int(i)
			}
			cards = append(cards, fitsio.Card{Name: c.Key, Value: value, Comment: c.Comment})
		}
		if err = im.Header().Append(cards...); err != nil {
			return err
		}
	}

	if err = im.Write(img.Data); err != nil {
		return err
	}
	if err = f.Write(im); err != nil {
		return err
	}
	return f.Close()
}

// Re-open a written file and check its primary data plane exists and matches the expected dimensions
func VerifyFile(fileName string, naxisn []int32) error {
	r, err := os.Open(fileName)
	if err != nil {
		return &IOError{Op: "verify", Path: fileName, Err: err}
	}
	defer r.Close()

	f, err := fitsio.Open(bufio.NewReader(r))
	if err != nil {
		return &IOError{Op: "verify", Path: fileName, Err: err}
	}
	defer f.Close()

	img, err := primaryImage(f)
	if err != nil {
		return &IOError{Op: "verify", Path: fileName, Err: err}
	}
	if len(img.Raw()) == 0 {
		return &IOError{Op: "verify", Path: fileName, Err: errNoDataPlane}
	}
	axes := img.Header().Axes()
	got := make([]int32, len(axes))
	for i, a := range axes {
		got[i] = int32(a)
	}
	if naxisn != nil && !EqualInt32Slice(got, naxisn) {
		return &IOError{Op: "verify", Path: fileName, Err: errors.New("dimensions differ from written image")}
	}
	return nil
}
