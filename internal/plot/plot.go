// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package plot renders small character-grid diagnostics for the
// terminal: a color-magnitude diagram of the catalog, the per-engine
// radius measurements, and the model gravitational-redshift curve.
package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/corecomposition/internal/gravz"
	"github.com/toeirei/corecomposition/internal/table"
	"github.com/toeirei/corecomposition/internal/wdmodels"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	pointStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	curveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const (
	defaultWidth  = 60
	defaultHeight = 16
)

// Series is one set of points to draw on a chart.
type Series struct {
	Xs, Ys []float64
	Marker rune
	Style  lipgloss.Style
}

// Render draws the series into a character grid with simple axis
// labels. NaN points are skipped. When flipY is set the minimum y value
// is drawn at the top, the convention for magnitude axes.
func Render(title, xLabel, yLabel string, flipY bool, series ...Series) string {
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	n := 0
	for _, s := range series {
		for i := range s.Xs {
			if math.IsNaN(s.Xs[i]) || math.IsNaN(s.Ys[i]) {
				continue
			}
			xMin, xMax = math.Min(xMin, s.Xs[i]), math.Max(xMax, s.Xs[i])
			yMin, yMax = math.Min(yMin, s.Ys[i]), math.Max(yMax, s.Ys[i])
			n++
		}
	}
	if n == 0 {
		return titleStyle.Render(title) + "\n  (no finite points)\n"
	}
	if xMax == xMin {
		xMax = xMin + 1
	}
	if yMax == yMin {
		yMax = yMin + 1
	}

	type cell struct {
		marker rune
		style  lipgloss.Style
	}
	grid := make([][]cell, defaultHeight)
	for r := range grid {
		grid[r] = make([]cell, defaultWidth)
	}
	for _, s := range series {
		for i := range s.Xs {
			x, y := s.Xs[i], s.Ys[i]
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			col := int((x - xMin) / (xMax - xMin) * float64(defaultWidth-1))
			frac := (y - yMin) / (yMax - yMin)
			if !flipY {
				frac = 1 - frac
			}
			row := int(frac * float64(defaultHeight-1))
			grid[row][col] = cell{marker: s.Marker, style: s.Style}
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	topVal, botVal := yMax, yMin
	if flipY {
		topVal, botVal = yMin, yMax
	}
	for r, row := range grid {
		switch r {
		case 0:
			b.WriteString(axisStyle.Render(fmt.Sprintf("%8.3g ┤", topVal)))
		case defaultHeight - 1:
			b.WriteString(axisStyle.Render(fmt.Sprintf("%8.3g ┤", botVal)))
		default:
			b.WriteString(axisStyle.Render("         │"))
		}
		for _, c := range row {
			if c.marker == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.marker)))
		}
		b.WriteByte('\n')
	}
	b.WriteString(axisStyle.Render("         └" + strings.Repeat("─", defaultWidth)))
	b.WriteByte('\n')
	b.WriteString(axisStyle.Render(fmt.Sprintf("          %-.3g%*s%.3g", xMin, defaultWidth-14, "", xMax)))
	b.WriteByte('\n')
	b.WriteString(axisStyle.Render(fmt.Sprintf("          x: %s   y: %s", xLabel, yLabel)))
	b.WriteByte('\n')
	return b.String()
}

// ColorMagnitude renders the catalog's HR diagram, brightest at the top.
func ColorMagnitude(t *table.Table, colorCol, magCol string) (string, error) {
	xs, err := t.Floats(colorCol)
	if err != nil {
		return "", err
	}
	ys, err := t.Floats(magCol)
	if err != nil {
		return "", err
	}
	title := fmt.Sprintf("color-magnitude diagram (%d sources)", t.NumRows())
	return Render(title, colorCol, magCol, true,
		Series{Xs: xs, Ys: ys, Marker: '•', Style: pointStyle}), nil
}

// Radii renders one radius-vs-error chart per engine from the radii
// table, with the failure count in the title.
func Radii(radii *table.Table, engines []string) (string, error) {
	var b strings.Builder
	for _, engine := range engines {
		rs, err := radii.Floats(engine + "_radius")
		if err != nil {
			return "", err
		}
		es, err := radii.Floats(engine + "_e_radius")
		if err != nil {
			return "", err
		}
		failed, err := radii.Floats(engine + "_failed")
		if err != nil {
			return "", err
		}
		nFailed := 0
		for _, f := range failed {
			if f != 0 {
				nFailed++
			}
		}
		title := fmt.Sprintf("%s radii (%d measured, %d failed)", engine, len(rs)-nFailed, nFailed)
		b.WriteString(Render(title, "radius [Rsun]", "error [Rsun]", false,
			Series{Xs: rs, Ys: es, Marker: '•', Style: pointStyle}))
	}
	return b.String(), nil
}

// GravZCurve renders the model gravitational-redshift velocity over a
// radius range at a fixed effective temperature.
func GravZCurve(m *wdmodels.Model, teff float64) string {
	radii := gravz.RadiusRange(0.004, 0.02, 48)
	vs := gravz.Curve(m, radii, teff)
	title := fmt.Sprintf("%s model gravz at Teff=%.0f K", m.Spec.Composition, teff)
	return Render(title, "radius [Rsun]", "v_g [km/s]", false,
		Series{Xs: radii, Ys: vs, Marker: '+', Style: curveStyle})
}
