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
	"math"
	"path/filepath"
	"testing"

	"github.com/hoxca/nightcal/internal/fits"
)

func TestCalibrateLightIdentity(t *testing.T) {
	light := testFrame("Light Frame", dims, []float64{1, 2, 3, 4, 5, 6})
	c, err := CalibrateLight(light, &Masters{})
	if err != nil {
		t.Fatal(err)
	}
	assertData(t, "identity", c.Data, light.Data)
	if len(c.Applied) != 0 {
		t.Errorf("applied %v", c.Applied)
	}
	c.Data[0] = 42
	if light.Data[0] != 1 {
		t.Error("light frame modified")
	}
}

func TestCalibrateLightOrder(t *testing.T) {
	light := testFrame("Light Frame", dims, []float64{130, 230, 330, 430, 530, 630})
	m := &Masters{
		Bias: constFrame("", dims, 10),
		Dark: constFrame("", dims, 20),
		Flat: testFrame("", dims, []float64{0.5, 1, 2, 0.5, 1, 2}),
	}
	c, err := CalibrateLight(light, m)
	if err != nil {
		t.Fatal(err)
	}
	assertData(t, "calibrated", c.Data, []float64{200, 200, 150, 800, 500, 300})
	want := []FrameType{Bias, Dark, Flat}
	if len(c.Applied) != len(want) {
		t.Fatalf("applied %v", c.Applied)
	}
	for i := range want {
		if c.Applied[i] != want[i] {
			t.Errorf("applied %v, want %v", c.Applied, want)
		}
	}
}

func TestCalibrateLightSanitizes(t *testing.T) {
	light := testFrame("Light Frame", dims, []float64{1, 1, 1, math.NaN(), 1, 1})
	m := &Masters{Flat: testFrame("", dims, []float64{0, 1, math.NaN(), 1, 1, 1})}
	c, err := CalibrateLight(light, m)
	if err != nil {
		t.Fatal(err)
	}
	assertData(t, "sanitized", c.Data, []float64{0, 1, 0, 0, 1, 1})
	if c.Sanitized != 3 {
		t.Errorf("sanitized %d, want 3", c.Sanitized)
	}
}

func TestCalibrateLightKeepsHeader(t *testing.T) {
	light := testFrame("Light Frame", dims, []float64{1, 2, 3, 4, 5, 6})
	light.Header.Set("DATE-OBS", "2024-03-01T21:13:05", "")
	light.Header.Set("EXPTIME", 120.0, "")
	c, err := CalibrateLight(light, &Masters{Bias: constFrame("Master Bias", dims, 1)})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range light.Header.Keys() {
		want, _ := light.Header.Get(k)
		got, ok := c.Header.Get(k)
		if !ok || got.Value != want.Value {
			t.Errorf("key %s = %v, want %v", k, got.Value, want.Value)
		}
	}
	if typ, _ := c.Header.GetString("IMAGETYP"); typ != "Light Frame" {
		t.Errorf("IMAGETYP = %q", typ)
	}
}

func TestCalibrateLightShapeMismatch(t *testing.T) {
	light := constFrame("Light Frame", dims, 1)
	for name, m := range map[string]*Masters{
		"bias": {Bias: constFrame("", []int32{2, 3}, 1)},
		"dark": {Dark: constFrame("", []int32{6, 1}, 1)},
		"flat": {Flat: constFrame("", []int32{3, 3}, 1)},
	} {
		if _, err := CalibrateLight(light, m); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("%s: got %v, want ErrShapeMismatch", name, err)
		}
	}
}

func TestPreProcessLights(t *testing.T) {
	dir := t.TempDir()
	l1 := writeFrame(t, dir, "l1.fits", constFrame("Light Frame", dims, 10))
	l2 := writeFrame(t, dir, "l2.fits", constFrame("Light Frame", dims, 20))
	missing := filepath.Join(dir, "missing.fits")
	m := &Masters{Bias: constFrame("", dims, 5)}
	out := &OutputParams{OutDir: filepath.Join(dir, "out")}

	lights, failures := PreProcessLights(context.Background(), []string{l1, missing, l2}, m, out, 2)
	if len(lights) != 2 || lights[0].SourceFile != l1 || lights[1].SourceFile != l2 {
		t.Fatalf("lights = %v", lights)
	}
	if len(failures) != 1 || failures[0].FileName != missing || failures[0].Kind != KindIO {
		t.Fatalf("failures = %v", failures)
	}

	want := filepath.Join(dir, "out", "l2_calibrated.fits")
	if lights[1].OutputFile != want {
		t.Errorf("output %s, want %s", lights[1].OutputFile, want)
	}
	img, err := fits.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	assertData(t, "written", img.Data, []float64{15, 15, 15, 15, 15, 15})
}

func TestPreProcessLightsCancelled(t *testing.T) {
	dir := t.TempDir()
	l1 := writeFrame(t, dir, "l1.fits", constFrame("Light Frame", dims, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lights, failures := PreProcessLights(ctx, []string{l1, l1}, &Masters{}, nil, 1)
	if len(lights) != 0 || len(failures) != 2 {
		t.Fatalf("lights %d failures %d", len(lights), len(failures))
	}
	for _, f := range failures {
		if f.Kind != KindCancelled {
			t.Errorf("kind %s, want Cancelled", f.Kind)
		}
	}
}
