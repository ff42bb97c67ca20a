package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts keep a bounded exponent so rendering them stays cheap.
const (
	minAmountExp = -10
	maxAmountExp = 15
)

var maxAmount = decimal.New(1, maxAmountExp)

// ErrAmountOutOfRange is returned for amounts too large or too precise to store
var ErrAmountOutOfRange = errors.New("amount out of range")

// CheckAmount rejects values whose exponent or magnitude exceeds what an
// invoice can carry. The exponent is checked first; comparing a value with
// a huge exponent would expand it.
func CheckAmount(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < minAmountExp || exp > maxAmountExp {
		return fmt.Errorf("%w: exponent %d", ErrAmountOutOfRange, exp)
	}
	if d.Abs().Cmp(maxAmount) >= 0 {
		return fmt.Errorf("%w: magnitude", ErrAmountOutOfRange)
	}
	return nil
}

// CheckAmounts applies CheckAmount to every decimal of a line item
func (li LineItem) CheckAmounts() error {
	for _, d := range []decimal.Decimal{li.Quantity, li.UnitPrice, li.Amount, li.TaxRate, li.TaxAmount} {
		if err := CheckAmount(d); err != nil {
			return err
		}
	}
	return nil
}
