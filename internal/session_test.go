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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoxca/nightcal/internal/fits"
)

// Directory with 3 bias, 3 dark, 3 flat and the given light frames
func sessionDir(t *testing.T, lights int) (dir string, fileNames []string) {
	t.Helper()
	dir = t.TempDir()
	for i := 0; i < 3; i++ {
		fileNames = append(fileNames,
			writeFrame(t, dir, fmt.Sprintf("bias%d.fits", i), constFrame("Bias Frame", dims, 100)),
			writeFrame(t, dir, fmt.Sprintf("dark%d.fits", i), constFrame("Dark Frame", dims, 110)),
			writeFrame(t, dir, fmt.Sprintf("flat%d.fits", i), testFrame("Flat Field", dims, []float64{160, 210, 210, 210, 210, 260})),
		)
	}
	for i := 0; i < lights; i++ {
		img := constFrame("Light Frame", dims, 310)
		img.Header.Set("DATE-OBS", "2024-03-01T21:13:05", "")
		fileNames = append(fileNames, writeFrame(t, dir, fmt.Sprintf("light%d.fits", i), img))
	}
	return dir, fileNames
}

func TestSessionRun(t *testing.T) {
	dir, fileNames := sessionDir(t, 2)
	corrupt := filepath.Join(dir, "light_corrupt.fits")
	if err := ioutil.WriteFile(corrupt, []byte("SIMPLE  =                    T"), 0644); err != nil {
		t.Fatal(err)
	}
	// valid light header, pixel data cut short
	truncated := writeFrame(t, dir, "light_truncated.fits", constFrame("Light Frame", dims, 310))
	if err := os.Truncate(truncated, 2880+16); err != nil {
		t.Fatal(err)
	}
	fileNames = append(fileNames, corrupt, truncated)

	s := NewSession(CalibrateParams{Write: true})
	res, err := s.Run(context.Background(), fileNames)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Calibrated) != 2 {
		t.Fatalf("calibrated %d frames, want 2", len(res.Calibrated))
	}
	if len(res.Sets.Light) != 3 || res.Sets.Light[2] != truncated {
		t.Errorf("lights = %v, want truncated frame classified as light", res.Sets.Light)
	}
	if len(res.Failures) != 2 || res.Failures[0].FileName != corrupt || res.Failures[1].FileName != truncated {
		t.Fatalf("failures = %v", res.Failures)
	}
	for _, f := range res.Failures {
		if f.Kind != KindIO {
			t.Errorf("%s: kind %s, want IOError", f.FileName, f.Kind)
		}
	}
	applied := res.Applied()
	if len(applied) != 3 {
		t.Errorf("applied %v, want bias, dark and flat", applied)
	}

	// light 310, bias 100, dark 10 after bias, flat (50 100 100 100 100 150)/100 after bias and dark
	want := []float64{400, 200, 200, 200, 200, 200 / 1.5}
	for _, c := range res.Calibrated {
		assertData(t, c.SourceFile, c.Data, want)
		if c.OutputFile != CalibratedFileName(c.SourceFile, DefaultCalibratedSuffix) {
			t.Errorf("output %s for %s", c.OutputFile, c.SourceFile)
		}
		img, err := fits.ReadFile(c.OutputFile)
		if err != nil {
			t.Fatal(err)
		}
		assertData(t, c.OutputFile, img.Data, want)
		if v, _ := img.Header.GetString("DATE-OBS"); v != "2024-03-01T21:13:05" {
			t.Errorf("DATE-OBS = %q", v)
		}
	}

	rep := res.Report()
	if rep.ID != s.ID || len(rep.Calibrated) != 2 || len(rep.Failures) != 2 || len(rep.Corrections) != 3 {
		t.Errorf("report %+v", rep)
	}
}

func TestSessionNoLights(t *testing.T) {
	_, fileNames := sessionDir(t, 0)
	res, err := NewSession(CalibrateParams{}).Run(context.Background(), fileNames)
	if !errors.Is(err, ErrNoLightFrames) {
		t.Fatalf("got %v, want ErrNoLightFrames", err)
	}
	if len(res.Corrections) != 0 {
		t.Errorf("masters built without light frames: %v", res.Corrections)
	}
}

func TestSessionWithoutCalibrationFrames(t *testing.T) {
	dir := t.TempDir()
	light := writeFrame(t, dir, "l.fits", testFrame("Light Frame", dims, []float64{1, 2, 3, 4, 5, 6}))
	res, err := NewSession(CalibrateParams{}).Run(context.Background(), []string{light})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Calibrated) != 1 || len(res.Applied()) != 0 {
		t.Fatalf("calibrated %d applied %v", len(res.Calibrated), res.Applied())
	}
	assertData(t, "identity", res.Calibrated[0].Data, []float64{1, 2, 3, 4, 5, 6})
	if _, err := os.Stat(CalibratedFileName(light, DefaultCalibratedSuffix)); !os.IsNotExist(err) {
		t.Errorf("output written without Write: %v", err)
	}
}

func TestSessionShapeMismatch(t *testing.T) {
	_, fileNames := sessionDir(t, 1)
	odd := writeFrame(t, t.TempDir(), "odd.fits", constFrame("Light Frame", []int32{2, 2}, 1))
	res, err := NewSession(CalibrateParams{}).Run(context.Background(), append(fileNames, odd))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Calibrated) != 1 || len(res.Failures) != 1 || res.Failures[0].Kind != KindShapeMismatch {
		t.Fatalf("calibrated %d failures %v", len(res.Calibrated), res.Failures)
	}
}

func TestSessionCancelled(t *testing.T) {
	_, fileNames := sessionDir(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewSession(CalibrateParams{}).Run(ctx, fileNames)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(res.Calibrated) != 0 || len(res.Failures) != 2 {
		t.Fatalf("calibrated %d failures %d", len(res.Calibrated), len(res.Failures))
	}
	for _, f := range res.Failures {
		if f.Kind != KindCancelled {
			t.Errorf("%s: kind %s", f.FileName, f.Kind)
		}
	}
	if len(res.Corrections) != 3 {
		t.Fatalf("corrections %v, want bias, dark and flat skipped", res.Corrections)
	}
	for _, c := range res.Corrections {
		if c.Applied || c.Kind != KindCancelled || c.Frames != 3 {
			t.Errorf("correction %+v, want cancelled with 3 frames", c)
		}
	}
}
