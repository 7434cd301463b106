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
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header

var errNoDataPlane = errors.New("no primary data plane")
var errNotFITS = errors.New("not a FITS file, SIMPLE card missing")

// Read a FITS file with its primary data plane and header.
// Integer data is converted to float64 with BZERO and BSCALE applied, BLANK values become NaN.
func ReadFile(fileName string) (*Image, error) {
	r, err := os.Open(fileName)
	if err != nil {
		return nil, &IOError{Op: "read", Path: fileName, Err: err}
	}
	defer r.Close()

	img, err := Read(bufio.NewReader(r))
	if err != nil {
		return nil, &IOError{Op: "read", Path: fileName, Err: err}
	}
	img.FileName = fileName
	return img, nil
}

// Read a FITS image from the given reader. The header is taken from the header scanner,
// so it matches ReadHeader and keeps COMMENT and HISTORY cards in order.
func Read(r io.Reader) (*Image, error) {
	var headerBlocks bytes.Buffer
	h, _, err := readHeader(io.TeeReader(r, &headerBlocks))
	if err != nil {
		return nil, err
	}

	f, err := fitsio.Open(io.MultiReader(&headerBlocks, r))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdu, err := primaryImage(f)
	if err != nil {
		return nil, err
	}
	hdr := hdu.Header()

	naxisn := make([]int32, len(hdr.Axes()))
	for i, a := range hdr.Axes() {
		naxisn[i] = int32(a)
	}
	img := NewImageFromNaxisn(naxisn, []float64{})
	img.Bitpix = int32(hdr.Bitpix())
	img.Header = h

	bzero, _ := cardFloat(hdr, "BZERO")
	bscale, ok := cardFloat(hdr, "BSCALE")
	if !ok {
		bscale = 1
	}
	blank, hasBlank := cardFloat(hdr, "BLANK")
	img.Data, err = readPixels(hdu, hdr.Bitpix(), int(img.Pixels), bzero, bscale, blank, hasBlank)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Returns the primary HDU if it holds a non-empty 2D image. Trailing axes of size 1 are tolerated
func primaryImage(f *fitsio.File) (fitsio.Image, error) {
	if len(f.HDUs()) == 0 {
		return nil, errNoDataPlane
	}
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, errNoDataPlane
	}
	axes := img.Header().Axes()
	if len(axes) < 2 {
		return nil, errNoDataPlane
	}
	for i, a := range axes {
		if a <= 0 || (i >= 2 && a != 1) {
			return nil, fmt.Errorf("unsupported data plane of dimensions %v", axes)
		}
	}
	return img, nil
}

func cardFloat(hdr *fitsio.Header, key string) (float64, bool) {
	c := hdr.Get(key)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Read the pixel plane in the representation given by bitpix and convert it to float64
func readPixels(img fitsio.Image, bitpix, n int, bzero, bscale, blank float64, hasBlank bool) ([]float64, error) {
	data := make([]float64, n)
	scaleInt := func(i int, v int64) {
		if hasBlank && float64(v) == blank {
			data[i] = math.NaN()
		} else {
			data[i] = bzero + bscale*float64(v)
		}
	}
	switch bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			scaleInt(i, int64(v))
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			scaleInt(i, int64(v))
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			scaleInt(i, int64(v))
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			scaleInt(i, v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			data[i] = bzero + bscale*float64(v)
		}
	case -64:
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		if bzero != 0 || bscale != 1 {
			for i, v := range data {
				data[i] = bzero + bscale*v
			}
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return data, nil
}

// Read only the primary header of a FITS file, stopping at the END card.
// Pixel data is never touched, which keeps scans over many large files cheap.
func ReadHeaderFile(fileName string) (*Header, error) {
	h, _, err := readHeaderFile(fileName)
	return h, err
}

// Read the axis dimensions of the primary data plane from the header only
func ReadAxesFile(fileName string) ([]int32, error) {
	_, naxisn, err := readHeaderFile(fileName)
	return naxisn, err
}

func readHeaderFile(fileName string) (*Header, []int32, error) {
	r, err := os.Open(fileName)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: fileName, Err: err}
	}
	defer r.Close()

	h, naxisn, err := readHeader(bufio.NewReaderSize(r, fitsBlockSize))
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: fileName, Err: err}
	}
	return h, naxisn, nil
}

// Read the primary header from the given reader, one 2880 byte block at a time
func ReadHeader(r io.Reader) (*Header, error) {
	h, _, err := readHeader(r)
	return h, err
}

func readHeader(r io.Reader) (*Header, []int32, error) {
	h := NewHeader()
	var naxisn []int32
	block := make([]byte, fitsBlockSize)
	for blockNo := 0; ; blockNo++ {
		if _, err := io.ReadFull(r, block); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				if blockNo == 0 {
					return nil, nil, errNotFITS
				}
				return nil, nil, errors.New("truncated header, END card not found")
			}
			return nil, nil, err
		}
		for off := 0; off < fitsBlockSize; off += HeaderLineSize {
			line := string(block[off : off+HeaderLineSize])
			if blockNo == 0 && off == 0 && !strings.HasPrefix(line, "SIMPLE  =") {
				return nil, nil, errNotFITS
			}
			key := strings.TrimSpace(line[:8])
			if key == "END" {
				return h, naxisn, nil
			}
			if isCommentaryKey(key) {
				h.Set(key, nil, strings.TrimRight(line[8:], " "))
				continue
			}
			if line[8:10] != "= " {
				continue
			}
			value, comment, err := parseCardValue(line[10:])
			if err != nil {
				return nil, nil, fmt.Errorf("card %s: %w", key, err)
			}
			if key == "NAXIS" {
				if n, ok := value.(int64); ok && n >= 0 && n < 1000 {
					naxisn = make([]int32, n)
				}
			} else if strings.HasPrefix(key, "NAXIS") {
				if i, err := strconv.Atoi(key[5:]); err == nil && i >= 1 && i <= len(naxisn) {
					if n, ok := value.(int64); ok {
						naxisn[i-1] = int32(n)
					}
				}
			}
			if !isStructuralKey(key) {
				h.Set(key, value, comment)
			}
		}
	}
}

// Parse the value and comment field of a header card
func parseCardValue(s string) (value interface{}, comment string, err error) {
	s = strings.TrimLeft(s, " ")
	if strings.HasPrefix(s, "'") {
		b := strings.Builder{}
		i := 1
		for ; i < len(s); i++ {
			if s[i] == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' { // escaped quote
					b.WriteByte('\'')
					i++
					continue
				}
				break
			}
			b.WriteByte(s[i])
		}
		if i >= len(s) {
			return nil, "", errors.New("unterminated string")
		}
		return strings.TrimRight(b.String(), " "), cardComment(s[i+1:]), nil
	}

	raw := s
	if j := strings.IndexByte(s, '/'); j >= 0 {
		raw, comment = s[:j], strings.TrimSpace(s[j+1:])
	}
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return nil, comment, nil // undefined value
	case "T":
		return true, comment, nil
	case "F":
		return false, comment, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, comment, nil
	}
	if f, err := strconv.ParseFloat(strings.Replace(raw, "D", "E", 1), 64); err == nil {
		return f, comment, nil
	}
	return raw, comment, nil
}

func cardComment(rest string) string {
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return strings.TrimSpace(rest[j+1:])
	}
	return ""
}
