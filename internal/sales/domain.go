package sales

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment labels offered by the entry form. Stored as free text.
const (
	PaymentCard = "Carte"
	PaymentCash = "Espèces"
)

// PaymentMethods lists the labels in the order the form shows them.
var PaymentMethods = []string{PaymentCard, PaymentCash}

var (
	// ErrEmptyTitle is returned when the product name is blank.
	ErrEmptyTitle = errors.New("title must not be empty")
	// ErrInvalidQuantity is returned when the quantity is not a positive integer.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidPrice is returned when the unit price is not a positive number.
	ErrInvalidPrice = errors.New("price must be greater than zero")
)

// Sale represents one recorded transaction. It is never modified once stored.
type Sale struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Qty     int       `json:"qty"`
	Price   float64   `json:"price"`
	Payment string    `json:"payment"`
	Date    time.Time `json:"date"`
}

// Amount is price × qty, computed exactly.
func (s Sale) Amount() decimal.Decimal {
	return decimal.NewFromFloat(s.Price).Mul(decimal.NewFromInt(int64(s.Qty)))
}

// SaleInput is what an operator submits from the form, the API or the CLI.
type SaleInput struct {
	Title   string  `json:"title" form:"title"`
	Qty     int     `json:"qty" form:"qty"`
	Price   float64 `json:"price" form:"price"`
	Payment string  `json:"payment" form:"payment"`
}

// Normalize trims the title and fills the default payment method.
func (in SaleInput) Normalize() SaleInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Payment = strings.TrimSpace(in.Payment)
	if in.Payment == "" {
		in.Payment = PaymentCard
	}
	return in
}

// Validate reports the first rule the input breaks.
func (in SaleInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if in.Qty <= 0 {
		return ErrInvalidQuantity
	}
	if in.Price <= 0 || math.IsInf(in.Price, 0) || math.IsNaN(in.Price) {
		return ErrInvalidPrice
	}
	return nil
}
