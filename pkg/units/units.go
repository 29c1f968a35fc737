// Package units converte valores em moeda (ex.: "1.5") para unidades base inteiras e vice-versa.
package units

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Decimals é a quantidade de casas decimais de uma unidade base (1 moeda = 1e9 unidades)
const Decimals = 9

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than 9 decimal places")

	maxUnits = decimal.NewFromInt(math.MaxInt64)
)

// Parse converte uma string decimal em unidades base
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal converte um valor em moeda para unidades base, sem arredondar
func FromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	shifted := d.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if shifted.GreaterThan(maxUnits) {
		return 0, ErrInvalidAmount
	}
	return shifted.IntPart(), nil
}

// ToDecimal converte unidades base para moeda
func ToDecimal(units int64) decimal.Decimal {
	return decimal.New(units, -Decimals)
}

// Format devolve a representação em moeda, sem zeros à direita
func Format(units int64) string {
	return ToDecimal(units).String()
}
