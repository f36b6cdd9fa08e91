package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ids(sales []Sale) []int64 {
	out := make([]int64, len(sales))
	for i, s := range sales {
		out[i] = s.ID
	}
	return out
}

func TestParseWindow(t *testing.T) {
	tests := map[string]Window{
		"all":     WindowAll,
		"day":     WindowDay,
		"week":    WindowWeek,
		"MONTH":   WindowMonth,
		" year ":  WindowYear,
		"":        WindowAll,
		"quarter": WindowAll,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseWindow(in), in)
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday", refNow, at(2025, time.March, 10, 0, 0)},
		{"monday midnight", at(2025, time.March, 10, 0, 0), at(2025, time.March, 10, 0, 0)},
		{"sunday", at(2025, time.March, 16, 22, 0), at(2025, time.March, 10, 0, 0)},
		{"across months", at(2025, time.March, 1, 9, 0), at(2025, time.February, 24, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(StartOfWeek(tt.now)), StartOfWeek(tt.now).String())
		})
	}
}

func TestFilter(t *testing.T) {
	sales := fixture()

	tests := []struct {
		window Window
		want   []int64
	}{
		{WindowAll, []int64{1, 2, 3, 4, 5, 6}},
		{WindowDay, []int64{5}},
		{WindowWeek, []int64{4, 5}},
		{WindowMonth, []int64{3, 4, 5, 6}},
		{WindowYear, []int64{2, 3, 4, 5, 6}},
		{ParseWindow("bogus"), []int64{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(sales, tt.window, refNow)))
		})
	}
}

func TestFilter_AllEqualsLedger(t *testing.T) {
	sales := fixture()
	got := Filter(sales, WindowAll, refNow)
	assert.Equal(t, sales, got)

	got[0].Title = "changed"
	assert.Equal(t, "Rouge à lèvres", sales[0].Title)
}

func TestFilter_WeekBoundaries(t *testing.T) {
	sales := []Sale{
		sale(1, "Sunday before", 1, 1, time.Date(2025, time.March, 9, 23, 59, 59, 0, time.UTC)),
		sale(2, "Monday start", 1, 1, at(2025, time.March, 10, 0, 0)),
		sale(3, "exactly now", 1, 1, refNow),
		sale(4, "after now", 1, 1, refNow.Add(time.Second)),
	}
	assert.Equal(t, []int64{2, 3}, ids(Filter(sales, WindowWeek, refNow)))
}

func TestFilter_DoesNotMutate(t *testing.T) {
	sales := fixture()
	before := append([]Sale(nil), sales...)
	_ = Filter(sales, WindowMonth, refNow)
	_ = Reverse(sales)
	assert.Equal(t, before, sales)
}

func TestReverseAndTotals(t *testing.T) {
	sales := fixture()
	assert.Equal(t, []int64{6, 5, 4, 3, 2, 1}, ids(Reverse(sales)))
	assert.Empty(t, Reverse(nil))

	total, count := Totals(Filter(sales, WindowWeek, refNow))
	assert.Equal(t, 2, count)
	assert.True(t, dec("67.2").Equal(total))

	total, count = Totals(nil)
	assert.Zero(t, count)
	assert.True(t, total.IsZero())
}
