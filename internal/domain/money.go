package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a BRL monetary value.
// Amount is stored as BIGINT centavos (10^-2) to avoid floating point errors.
type Money struct {
	Cents int64
}

// NewMoney creates a new Money instance from centavos.
func NewMoney(cents int64) Money {
	return Money{Cents: cents}
}

// ToDecimal converts the int64 centavos to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(100))
}

// FromDecimal converts a decimal.Decimal amount in reais to int64 centavos,
// rounding half away from zero at the cent boundary.
func FromDecimal(d decimal.Decimal) int64 {
	return RoundCents(d).Mul(decimal.NewFromInt(100)).IntPart()
}

// RoundCents rounds an amount to 2 decimal places, half away from zero.
// Derived quantities (fee, then net) are each rounded independently before
// being combined; summing pre-rounded components can differ by a cent from
// rounding a single combined formula, and that ordering is intentional.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns the given percentage of the amount as a Money value,
// rounded to the cent.
func (m Money) Percent(p decimal.Decimal) Money {
	raw := m.ToDecimal().Mul(p).Div(decimal.NewFromInt(100))
	return Money{Cents: FromDecimal(raw)}
}

// Add returns the sum of two money values.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns the difference of two money values.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("R$ %s", m.ToDecimal().StringFixed(2))
}
