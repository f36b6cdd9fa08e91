package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysInSeries is the length of the day-of-month series.
const DaysInSeries = 31

// Summary holds the revenue figures derived from a ledger snapshot.
type Summary struct {
	Day   decimal.Decimal `json:"day"`
	Week  decimal.Decimal `json:"week"`
	Month decimal.Decimal `json:"month"`
	Year  decimal.Decimal `json:"year"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`

	// Daily[i] sums every sale made on day-of-month i+1, whatever its month
	// or year.
	Daily [DaysInSeries]decimal.Decimal `json:"daily"`
}

// Aggregate computes the Summary of sales relative to now in one pass.
// Calendar boundaries are taken in now's location.
func Aggregate(sales []Sale, now time.Time) Summary {
	loc := now.Location()
	weekStart := StartOfWeek(now)

	var s Summary
	for _, sale := range sales {
		amount := sale.Amount()
		d := sale.Date.In(loc)

		s.Total = s.Total.Add(amount)
		s.Count++
		s.Daily[d.Day()-1] = s.Daily[d.Day()-1].Add(amount)

		// A week can straddle a month or a year, so it is checked on its own.
		if inWeek(d, weekStart, now) {
			s.Week = s.Week.Add(amount)
		}
		if d.Year() != now.Year() {
			continue
		}
		s.Year = s.Year.Add(amount)
		if d.Month() != now.Month() {
			continue
		}
		s.Month = s.Month.Add(amount)
		if d.Day() == now.Day() {
			s.Day = s.Day.Add(amount)
		}
	}
	return s
}

func inWeek(d, start, now time.Time) bool {
	return !d.Before(start) && !d.After(now)
}

// Scale is the vertical axis of the daily chart.
type Scale struct {
	Max  int64 `json:"max"`
	Step int64 `json:"step"`
}

// ScaleFor picks the axis for a daily series: at least 100, otherwise the
// largest bucket rounded up to a multiple of 50. Steps are 20 up to 100, then 50.
func ScaleFor(daily [DaysInSeries]decimal.Decimal) Scale {
	peak := decimal.NewFromInt(1)
	for _, v := range daily {
		if v.GreaterThan(peak) {
			peak = v
		}
	}

	fifty := decimal.NewFromInt(50)
	top := peak.Div(fifty).Ceil().Mul(fifty).IntPart()
	if top < 100 {
		top = 100
	}

	step := int64(50)
	if top <= 100 {
		step = 20
	}
	return Scale{Max: top, Step: step}
}

// Ticks lists the axis graduations from 0 to Max inclusive.
func (s Scale) Ticks() []int64 {
	if s.Step <= 0 {
		return []int64{0}
	}
	ticks := make([]int64, 0, s.Max/s.Step+1)
	for v := int64(0); v <= s.Max; v += s.Step {
		ticks = append(ticks, v)
	}
	return ticks
}

// DayTicks are the x-axis labels of the daily chart.
var DayTicks = []int{1, 5, 10, 15, 20, 25, 30}

// Point is one day of the chart that carries revenue.
type Point struct {
	Day   int             `json:"day"`
	Value decimal.Decimal `json:"value"`
}

// Chart is everything the dashboard needs to draw the daily series.
type Chart struct {
	Scale    Scale                         `json:"scale"`
	Ticks    []int64                       `json:"ticks"`
	DayTicks []int                         `json:"day_ticks"`
	Series   [DaysInSeries]decimal.Decimal `json:"series"`
	Points   []Point                       `json:"points"`
}

// NewChart lays out a daily series for drawing.
func NewChart(daily [DaysInSeries]decimal.Decimal) Chart {
	scale := ScaleFor(daily)
	c := Chart{
		Scale:    scale,
		Ticks:    scale.Ticks(),
		DayTicks: DayTicks,
		Series:   daily,
		Points:   []Point{},
	}
	for i, v := range daily {
		if v.IsPositive() {
			c.Points = append(c.Points, Point{Day: i + 1, Value: v})
		}
	}
	return c
}
