package domain

import "github.com/shopspring/decimal"

var (
	hoursPerDay   = decimal.NewFromInt(24)
	millisPerHour = decimal.NewFromInt(3_600_000)
	defaultScale  = int32(2)
)

// RoundHours rounds hours to two decimal places.
func RoundHours(d decimal.Decimal) decimal.Decimal {
	return d.Round(defaultScale)
}

// RoundMoney rounds an amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(defaultScale)
}

// Some wraps d as a present nullable value.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Ptr converts a nullable decimal to a pointer, nil when absent.
func Ptr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

// FromPtr converts a pointer to a nullable decimal.
func FromPtr(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return Some(*p)
}
