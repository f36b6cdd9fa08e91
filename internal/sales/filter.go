package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Window names a time range relative to now.
type Window string

const (
	WindowAll   Window = "all"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// Windows lists every window in the order the history page offers them.
var Windows = []Window{WindowAll, WindowDay, WindowWeek, WindowMonth, WindowYear}

// ParseWindow maps a filter name to its Window. Unknown names mean all.
func ParseWindow(name string) Window {
	switch w := Window(strings.ToLower(strings.TrimSpace(name))); w {
	case WindowDay, WindowWeek, WindowMonth, WindowYear:
		return w
	default:
		return WindowAll
	}
}

// Label is the French caption used by the pages.
func (w Window) Label() string {
	switch w {
	case WindowDay:
		return "Aujourd'hui"
	case WindowWeek:
		return "Cette semaine"
	case WindowMonth:
		return "Ce mois"
	case WindowYear:
		return "Cette année"
	default:
		return "Tout"
	}
}

// StartOfWeek returns Monday 00:00 of now's week, in now's location.
func StartOfWeek(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// Filter returns the sales inside w, in ledger order, as a new slice.
func Filter(sales []Sale, w Window, now time.Time) []Sale {
	out := make([]Sale, 0, len(sales))
	if w == WindowAll || w == "" {
		return append(out, sales...)
	}

	loc := now.Location()
	weekStart := StartOfWeek(now)
	for _, s := range sales {
		d := s.Date.In(loc)
		var keep bool
		switch w {
		case WindowDay:
			keep = sameDay(d, now)
		case WindowWeek:
			keep = inWeek(d, weekStart, now)
		case WindowMonth:
			keep = d.Year() == now.Year() && d.Month() == now.Month()
		case WindowYear:
			keep = d.Year() == now.Year()
		default:
			keep = true
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Reverse returns sales most recent first, without touching the input.
func Reverse(sales []Sale) []Sale {
	out := make([]Sale, len(sales))
	for i, s := range sales {
		out[len(sales)-1-i] = s
	}
	return out
}

// Totals sums a selection and counts it.
func Totals(sales []Sale) (decimal.Decimal, int) {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Amount())
	}
	return total, len(sales)
}
