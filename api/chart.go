package api

import (
	"fmt"
	"strings"

	"github.com/Sorinen/service-boutique/internal/sales"
)

// Chart canvas, in SVG user units.
const (
	chartWidth        = 720
	chartHeight       = 350
	chartMarginLeft   = 55
	chartMarginRight  = 20
	chartMarginTop    = 25
	chartMarginBottom = 45
)

type svgTick struct {
	Pos   float64
	Label string
}

type svgDot struct {
	X, Y  float64
	Day   int
	Label string
}

// svgChart is the drawable form of sales.Chart. The template only places
// what is computed here.
type svgChart struct {
	Width, Height         int
	Left, Top             float64
	PlotWidth, PlotHeight float64
	Bottom, Right         float64
	YTicks                []svgTick
	XTicks                []svgTick
	Line                  string
	Area                  string
	Dots                  []svgDot
}

func newSVGChart(c sales.Chart) svgChart {
	plotW := float64(chartWidth - chartMarginLeft - chartMarginRight)
	plotH := float64(chartHeight - chartMarginTop - chartMarginBottom)
	top := float64(chartMarginTop)
	left := float64(chartMarginLeft)
	bottom := top + plotH
	scaleMax := float64(c.Scale.Max)

	x := func(index int) float64 { return left + float64(index)/30*plotW }
	y := func(v float64) float64 { return bottom - v/scaleMax*plotH }

	out := svgChart{
		Width: chartWidth, Height: chartHeight,
		Left: left, Top: top,
		PlotWidth: plotW, PlotHeight: plotH,
		Bottom: bottom, Right: left + plotW,
	}

	for _, v := range c.Ticks {
		out.YTicks = append(out.YTicks, svgTick{Pos: y(float64(v)), Label: fmt.Sprintf("%d €", v)})
	}
	for _, d := range c.DayTicks {
		out.XTicks = append(out.XTicks, svgTick{Pos: x(d - 1), Label: fmt.Sprint(d)})
	}

	var line strings.Builder
	for i, v := range c.Series {
		f, _ := v.Float64()
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&line, "%s%.1f,%.1f ", cmd, x(i), y(f))
	}
	out.Line = strings.TrimSpace(line.String())
	out.Area = fmt.Sprintf("M%.1f,%.1f %s L%.1f,%.1f Z", left, bottom, "L"+out.Line[1:], out.Right, bottom)

	for _, p := range c.Points {
		f, _ := p.Value.Float64()
		out.Dots = append(out.Dots, svgDot{X: x(p.Day - 1), Y: y(f), Day: p.Day, Label: sales.Euro(p.Value)})
	}
	return out
}
