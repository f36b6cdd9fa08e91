package sales

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Euro renders an amount with the euro sign for the pages and reports.
// Amounts are rounded to the cent for display only.
func Euro(amount decimal.Decimal) string {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(cents, money.EUR).Display()
}
