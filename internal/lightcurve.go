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
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/hoxca/nightcal/internal/archive"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"
)

var (
	curveBackground = colorful.Color{R: 0.082, G: 0.082, B: 0.082}
	curveAxes       = colorful.Color{R: 0.74, G: 0.76, B: 0.79}
	curveLine       = colorful.Color{R: 0.87, G: 0.23, B: 0.25}
)

// Render a light curve to PNG: time on the x axis, magnitude on an inverted y axis
// as brighter objects have smaller magnitudes. Points are joined in time order;
// samples with non-finite time or magnitude are skipped.
func RenderLightCurve(points []archive.LightCurvePoint, title, fileName string, width, height int) error {
	points = finitePointsByTime(points)
	if len(points) == 0 {
		return errors.New("no light curve points to render")
	}
	const margin = 60.0
	minT, maxT := math.Inf(1), math.Inf(-1)
	minM, maxM := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minT, maxT = math.Min(minT, p.Time), math.Max(maxT, p.Time)
		minM, maxM = math.Min(minM, p.Magnitude-p.Error), math.Max(maxM, p.Magnitude+p.Error)
	}
	if maxT == minT {
		minT, maxT = minT-0.5, maxT+0.5
	}
	if maxM == minM {
		minM, maxM = minM-0.5, maxM+0.5
	}
	plotW, plotH := float64(width)-2*margin, float64(height)-2*margin
	px := func(t float64) float64 { return margin + (t-minT)/(maxT-minT)*plotW }
	py := func(m float64) float64 { return margin + (m-minM)/(maxM-minM)*plotH } // inverted: bright on top

	dc := gg.NewContext(width, height)
	dc.SetColor(curveBackground)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	// axes and labels
	dc.SetColor(curveAxes)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin, margin, margin+plotH)
	dc.DrawLine(margin, margin+plotH, margin+plotW, margin+plotH)
	dc.Stroke()
	dc.DrawStringAnchored(title, float64(width)/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored("Time", margin+plotW/2, float64(height)-margin/3, 0.5, 0.5)
	dc.DrawStringAnchored("Mag", margin/3, margin+plotH/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", minT), margin, margin+plotH+12, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", maxT), margin+plotW, margin+plotH+12, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", minM), margin-4, margin, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", maxM), margin-4, margin+plotH, 1, 0.5)

	// line, error bars and markers. Markers fade from the line color to white in time order
	dc.SetColor(curveLine)
	dc.SetLineWidth(1.5)
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(px(p.Time), py(p.Magnitude))
		} else {
			dc.LineTo(px(p.Time), py(p.Magnitude))
		}
	}
	dc.Stroke()
	for i, p := range points {
		t := 0.0
		if len(points) > 1 {
			t = float64(i) / float64(len(points)-1)
		}
		dc.SetColor(curveLine.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.5*t))
		if p.Error > 0 {
			dc.DrawLine(px(p.Time), py(p.Magnitude-p.Error), px(p.Time), py(p.Magnitude+p.Error))
			dc.Stroke()
		}
		dc.DrawCircle(px(p.Time), py(p.Magnitude), 3)
		dc.Fill()
	}
	return dc.SavePNG(fileName)
}

// Copy of the points with finite time and magnitude, sorted by time. Non-finite errors become zero
func finitePointsByTime(points []archive.LightCurvePoint) []archive.LightCurvePoint {
	res := make([]archive.LightCurvePoint, 0, len(points))
	for _, p := range points {
		if !isFinite(p.Time) || !isFinite(p.Magnitude) {
			continue
		}
		if !isFinite(p.Error) || p.Error < 0 {
			p.Error = 0
		}
		res = append(res, p)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Time < res[j].Time })
	return res
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
