package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func sale(id int64, title string, qty int, price float64, date time.Time) Sale {
	return Sale{ID: id, Title: title, Qty: qty, Price: price, Payment: PaymentCard, Date: date}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Wednesday 2025-03-12 15:00 UTC.
var refNow = at(2025, time.March, 12, 15, 0)

func fixture() []Sale {
	return []Sale{
		sale(1, "Rouge à lèvres", 2, 12.5, at(2024, time.November, 15, 10, 0)),
		sale(2, "Vernis", 1, 8, at(2025, time.January, 3, 9, 0)),
		sale(3, "Crème", 3, 19.99, at(2025, time.March, 2, 18, 0)),   // previous Sunday
		sale(4, "Parfum", 1, 45, at(2025, time.March, 10, 0, 0)),     // Monday 00:00
		sale(5, "Mascara", 2, 11.1, at(2025, time.March, 12, 8, 30)), // today
		sale(6, "Savon", 4, 3.25, at(2025, time.March, 15, 11, 0)),   // after now
	}
}

func TestAggregate_Windows(t *testing.T) {
	s := Aggregate(fixture(), refNow)

	assert.Equal(t, 6, s.Count)
	assert.True(t, dec("22.2").Equal(s.Day), "day: %s", s.Day)
	assert.True(t, dec("67.2").Equal(s.Week), "week: %s", s.Week)
	assert.True(t, dec("140.17").Equal(s.Month), "month: %s", s.Month)
	assert.True(t, dec("148.17").Equal(s.Year), "year: %s", s.Year)
	assert.True(t, dec("173.17").Equal(s.Total), "total: %s", s.Total)
}

func TestAggregate_TotalIsSumOfAmounts(t *testing.T) {
	sales := fixture()
	want := decimal.Zero
	for _, s := range sales {
		want = want.Add(decimal.NewFromFloat(s.Price).Mul(decimal.NewFromInt(int64(s.Qty))))
	}

	forward := Aggregate(sales, refNow)
	backward := Aggregate(Reverse(sales), refNow)
	assert.True(t, want.Equal(forward.Total))
	assert.True(t, forward.Total.Equal(backward.Total))
}

func TestAggregate_WindowsAreNested(t *testing.T) {
	sales := fixture()
	for _, now := range []time.Time{
		refNow,
		at(2025, time.January, 1, 0, 0),
		at(2024, time.November, 15, 23, 59),
		at(2030, time.June, 1, 12, 0),
	} {
		s := Aggregate(sales, now)
		assert.True(t, s.Day.LessThanOrEqual(s.Month), now.String())
		assert.True(t, s.Month.LessThanOrEqual(s.Year), now.String())
		assert.True(t, s.Year.LessThanOrEqual(s.Total), now.String())
	}
}

func TestAggregate_DailySeriesOverlaysMonths(t *testing.T) {
	sales := []Sale{
		sale(1, "A", 2, 10, at(2025, time.January, 15, 9, 0)),
		sale(2, "B", 1, 7.5, at(2024, time.June, 15, 9, 0)),
		sale(3, "C", 1, 3, at(2025, time.March, 16, 9, 0)),
		sale(4, "D", 1, 5, at(2025, time.January, 31, 9, 0)),
	}
	s := Aggregate(sales, refNow)

	assert.True(t, dec("27.5").Equal(s.Daily[14]))
	assert.True(t, dec("3").Equal(s.Daily[15]))
	assert.True(t, dec("5").Equal(s.Daily[30]))
	assert.True(t, s.Daily[0].IsZero())
}

func TestAggregate_WeekAcrossYearBoundary(t *testing.T) {
	// Thursday 2026-01-01; the week started Monday 2025-12-29.
	now := at(2026, time.January, 1, 12, 0)
	sales := []Sale{
		sale(1, "A", 1, 10, at(2025, time.December, 29, 0, 0)),
		sale(2, "B", 1, 5, at(2025, time.December, 28, 23, 59)),
	}
	s := Aggregate(sales, now)
	assert.True(t, dec("10").Equal(s.Week))
	assert.True(t, s.Year.IsZero())
}

func TestAggregate_UsesNowLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 23:30 UTC on the 11th is already the 12th in Paris.
	sales := []Sale{sale(1, "A", 1, 10, at(2025, time.March, 11, 23, 30))}
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, paris)

	s := Aggregate(sales, now)
	assert.True(t, dec("10").Equal(s.Day))
	assert.True(t, dec("10").Equal(s.Daily[11]))
}

func TestScaleFor(t *testing.T) {
	tests := []struct {
		name  string
		peak  string
		max   int64
		step  int64
		ticks int
	}{
		{"empty", "0", 100, 20, 6},
		{"small", "37", 100, 20, 6},
		{"exactly 100", "100", 100, 20, 6},
		{"just above", "100.01", 150, 50, 4},
		{"large", "412", 450, 50, 10},
		{"multiple of 50", "450", 450, 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var daily [DaysInSeries]decimal.Decimal
			daily[4] = dec(tt.peak)

			scale := ScaleFor(daily)
			assert.Equal(t, tt.max, scale.Max)
			assert.Equal(t, tt.step, scale.Step)

			ticks := scale.Ticks()
			assert.Len(t, ticks, tt.ticks)
			assert.Equal(t, int64(0), ticks[0])
			assert.Equal(t, tt.max, ticks[len(ticks)-1])
		})
	}
}

func TestNewChart(t *testing.T) {
	var daily [DaysInSeries]decimal.Decimal
	daily[0] = dec("12")
	daily[14] = dec("412")

	c := NewChart(daily)
	assert.Equal(t, Scale{Max: 450, Step: 50}, c.Scale)
	assert.Equal(t, []int{1, 5, 10, 15, 20, 25, 30}, c.DayTicks)
	assert.Equal(t, []Point{{Day: 1, Value: dec("12")}, {Day: 15, Value: dec("412")}}, c.Points)
}
