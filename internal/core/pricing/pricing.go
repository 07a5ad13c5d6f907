// Package pricing computes line and order amounts with exact decimal
// arithmetic under a fixed, tax-inclusive rate.
package pricing

import (
	"fmt"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/govalues/decimal"
)

// MoneyScale is the number of fractional digits kept for derived amounts.
const MoneyScale = 2

// taxRate is the VAT ratio included in every product price.
var taxRate = decimal.MustParse("0.24")

// TaxRate returns the VAT ratio included in every product price.
func TaxRate() decimal.Decimal {
	return taxRate
}

type Line struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
	Tax   decimal.Decimal
}

// ComputeLine splits unitPrice*quantity into its net and tax parts.
// Net is rounded half-up to MoneyScale; Tax is the exact remainder.
func ComputeLine(unitPrice decimal.Decimal, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	gross, err := unitPrice.Mul(decimal.MustNew(int64(quantity), 0))
	if err != nil {
		return Line{}, fmt.Errorf("math error:%w", err)
	}

	divisor, err := decimal.One.Add(taxRate)
	if err != nil {
		return Line{}, fmt.Errorf("math error:%w", err)
	}
	net, err := gross.Quo(divisor)
	if err != nil {
		return Line{}, fmt.Errorf("math error:%w", err)
	}
	net, err = RoundHalfUp(net, MoneyScale)
	if err != nil {
		return Line{}, err
	}

	tax, err := gross.Sub(net)
	if err != nil {
		return Line{}, fmt.Errorf("math error:%w", err)
	}

	return Line{Gross: gross, Net: net, Tax: tax}, nil
}

// RoundHalfUp rounds d to scale digits, ties away from zero.
// decimal.Round rounds half to even, which is not what invoices use.
func RoundHalfUp(d decimal.Decimal, scale int) (decimal.Decimal, error) {
	if d.Scale() <= scale {
		return d.Pad(scale), nil
	}
	half := decimal.MustNew(5, scale+1)
	if d.Sign() < 0 {
		half = half.Neg()
	}
	r, err := d.Add(half)
	if err != nil {
		return decimal.Zero, fmt.Errorf("math error:%w", err)
	}
	return r.Trunc(scale).Pad(scale), nil
}

// OrderTotal sums the subtotals of items.
func OrderTotal(items []domain.OrderItem) (decimal.Decimal, error) {
	o := domain.Order{Items: items}
	return o.CalculateTotal()
}
