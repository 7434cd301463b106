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
	"strings"

	"github.com/hoxca/nightcal/internal/fits"
)

// Type of a frame, as declared in its header
type FrameType int

const (
	Unknown FrameType = iota
	Light
	Dark
	Flat
	Bias
)

func (t FrameType) String() string {
	switch t {
	case Light:
		return "Light"
	case Dark:
		return "Dark"
	case Flat:
		return "Flat"
	case Bias:
		return "Bias"
	}
	return "Unknown"
}

func (t FrameType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FrameType) UnmarshalText(text []byte) error {
	*t = Unknown
	for _, c := range []FrameType{Light, Dark, Flat, Bias} {
		if strings.EqualFold(string(text), c.String()) {
			*t = c
		}
	}
	return nil
}

// Header keys holding the frame type, in order of preference
var DefaultFrameTypeKeys = []string{"IMAGETYP", "FRAMETYP", "FRAME"}

// Classify a frame by the first frame type key present in the header.
// Matching is case-insensitive on substrings; anything unrecognized is Unknown.
func Classify(h *fits.Header, keys []string) FrameType {
	if h == nil {
		return Unknown
	}
	if len(keys) == 0 {
		keys = DefaultFrameTypeKeys
	}
	for _, key := range keys {
		tag, ok := h.GetString(key)
		if !ok {
			continue
		}
		return classifyTag(tag)
	}
	return Unknown
}

func classifyTag(tag string) FrameType {
	tag = strings.ToUpper(tag)
	switch {
	case strings.Contains(tag, "LIGHT"), strings.Contains(tag, "OBJECT"):
		return Light
	case strings.Contains(tag, "DARK"):
		return Dark
	case strings.Contains(tag, "FLAT"):
		return Flat
	case strings.Contains(tag, "BIAS"):
		return Bias
	}
	return Unknown
}

// File names bucketed by frame type. Unknown frames are not kept
type FrameSets struct {
	Light []string `json:"light"`
	Dark  []string `json:"dark"`
	Flat  []string `json:"flat"`
	Bias  []string `json:"bias"`
}

// File names of the given type
func (s *FrameSets) Of(t FrameType) []string {
	switch t {
	case Light:
		return s.Light
	case Dark:
		return s.Dark
	case Flat:
		return s.Flat
	case Bias:
		return s.Bias
	}
	return nil
}

func (s *FrameSets) add(t FrameType, fileName string) {
	switch t {
	case Light:
		s.Light = append(s.Light, fileName)
	case Dark:
		s.Dark = append(s.Dark, fileName)
	case Flat:
		s.Flat = append(s.Flat, fileName)
	case Bias:
		s.Bias = append(s.Bias, fileName)
	}
}

// Classify the given files reading only their headers. Input order is kept within each set.
// Files with unreadable headers are returned as failures, as their type cannot be known.
func ClassifyBatch(fileNames []string, keys []string) (sets *FrameSets, failures []Failure) {
	sets = &FrameSets{}
	for _, fileName := range fileNames {
		h, err := fits.ReadHeaderFile(fileName)
		if err != nil {
			failures = append(failures, NewFailure(fileName, err))
			continue
		}
		t := Classify(h, keys)
		if t == Unknown {
			LogPrintf("Skipping %s of unknown frame type\n", fileName)
			continue
		}
		sets.add(t, fileName)
	}
	return sets, failures
}
