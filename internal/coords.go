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
	"math"
	"strconv"
	"strings"

	"github.com/hoxca/nightcal/internal/fits"
)

// Parse sexagesimal "hh mm ss.s" or "hh:mm:ss.s" right ascension into degrees.
// A single number is taken as degrees already.
func ParseRA(s string) (float64, error) {
	parts, neg, err := splitSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("right ascension %q: %w", s, err)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	if neg {
		return 0, fmt.Errorf("right ascension %q: negative hours", s)
	}
	hours := sexagesimal(parts)
	if hours >= 24 {
		return 0, fmt.Errorf("right ascension %q: out of range", s)
	}
	return hours * 15, nil
}

// Parse sexagesimal "+dd mm ss.s" or "+dd:mm:ss.s" declination into degrees.
// A single number is taken as degrees already.
func ParseDec(s string) (float64, error) {
	parts, neg, err := splitSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("declination %q: %w", s, err)
	}
	deg := sexagesimal(parts)
	if neg {
		deg = -deg
	}
	if deg < -90 || deg > 90 {
		return 0, fmt.Errorf("declination %q: out of range", s)
	}
	return deg, nil
}

func splitSexagesimal(s string) (parts []float64, neg bool, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ':' })
	if len(fields) == 0 || len(fields) > 3 {
		return nil, false, fmt.Errorf("expected 1 to 3 components")
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false, fmt.Errorf("invalid component %q", f)
		}
		parts = append(parts, v)
	}
	if len(parts) == 1 && neg {
		parts[0] = -parts[0]
		neg = false
	}
	return parts, neg, nil
}

func sexagesimal(parts []float64) float64 {
	v, scale := 0.0, 1.0
	for _, p := range parts {
		v += p / scale
		scale *= 60
	}
	return v
}

// Target coordinates in degrees from a FITS header. Numeric RA/DEC cards are degrees,
// OBJCTRA/OBJCTDEC are sexagesimal strings in hours and degrees.
func HeaderCoordinates(h *fits.Header) (ra, dec float64, err error) {
	ra, err = headerCoordinate(h, ParseRA, "RA", "OBJCTRA")
	if err != nil {
		return 0, 0, err
	}
	dec, err = headerCoordinate(h, ParseDec, "DEC", "OBJCTDEC")
	if err != nil {
		return 0, 0, err
	}
	return ra, dec, nil
}

func headerCoordinate(h *fits.Header, parse func(string) (float64, error), keys ...string) (float64, error) {
	for _, key := range keys {
		if v, ok := h.GetFloat(key); ok {
			return v, nil
		}
		if s, ok := h.GetString(key); ok && strings.TrimSpace(s) != "" {
			return parse(s)
		}
	}
	return 0, fmt.Errorf("header has none of %s", strings.Join(keys, ", "))
}
