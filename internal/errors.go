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

	"github.com/hoxca/nightcal/internal/fits"
)

var (
	ErrInsufficientData = errors.New("insufficient data: empty frame set")
	ErrDegenerateFlat   = errors.New("degenerate flat: median is zero")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrNoLightFrames    = errors.New("no light frames to calibrate")
	ErrCancelled        = errors.New("cancelled")
)

// Category of a failure, as reported in session results
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindIO
	KindInsufficientData
	KindDegenerateFlat
	KindShapeMismatch
	KindNoLightFrames
	KindCancelled
)

var errorKindNames = []string{"Unknown", "IOError", "InsufficientDataError", "DegenerateFlatError",
	"ShapeMismatchError", "NoLightFramesError", "Cancelled"}

func (k ErrorKind) String() string {
	if int(k) < 0 || int(k) >= len(errorKindNames) {
		return errorKindNames[0]
	}
	return errorKindNames[k]
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(text []byte) error {
	*k = KindUnknown
	for i, name := range errorKindNames {
		if name == string(text) {
			*k = ErrorKind(i)
		}
	}
	return nil
}

// Classify an error into its kind
func KindOf(err error) ErrorKind {
	var ioErr *fits.IOError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ioErr):
		return KindIO
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrDegenerateFlat):
		return KindDegenerateFlat
	case errors.Is(err, ErrShapeMismatch):
		return KindShapeMismatch
	case errors.Is(err, ErrNoLightFrames):
		return KindNoLightFrames
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	}
	return KindUnknown
}

// A file which could not be processed, and why
type Failure struct {
	FileName string    `json:"file"`
	Kind     ErrorKind `json:"kind"`
	Err      error     `json:"-"`
	Message  string    `json:"message"`
}

func NewFailure(fileName string, err error) Failure {
	return Failure{FileName: fileName, Kind: KindOf(err), Err: err, Message: err.Error()}
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s: %s", f.FileName, f.Kind, f.Message)
}

func shapeMismatch(what string, a, b *fits.Image) error {
	return fmt.Errorf("%w: %s %s differs from %s", ErrShapeMismatch, what, a.DimensionsToString(), b.DimensionsToString())
}
