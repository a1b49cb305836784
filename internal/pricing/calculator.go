// Package pricing turns meter readings into amounts due. Each payment
// method registers one Calculator; resolution never falls back to a
// default, unknown methods fail loudly.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
)

// Calculator computes the amount due for one meter reading under a tariff.
type Calculator interface {
	Method() tariffdomain.PaymentMethod
	Amount(reading decimal.Decimal, tariff tariffdomain.Tariff) (decimal.Decimal, error)
}

var (
	ErrUnknownPaymentMethod = errors.New("unknown_payment_method")
	ErrMissingUnitPrice     = errors.New("missing_unit_price")
	ErrMissingFixedPayment  = errors.New("missing_fixed_payment")
)

type perKWhCalculator struct{}

func (perKWhCalculator) Method() tariffdomain.PaymentMethod {
	return tariffdomain.PaymentMethodPerKWh
}

func (perKWhCalculator) Amount(reading decimal.Decimal, tariff tariffdomain.Tariff) (decimal.Decimal, error) {
	if tariff.PricePerKWh == nil {
		return decimal.Zero, ErrMissingUnitPrice
	}
	return reading.Mul(*tariff.PricePerKWh), nil
}

type fixedCalculator struct{}

func (fixedCalculator) Method() tariffdomain.PaymentMethod {
	return tariffdomain.PaymentMethodFixed
}

// Amount ignores the reading entirely; the tariff bills a flat payment.
func (fixedCalculator) Amount(_ decimal.Decimal, tariff tariffdomain.Tariff) (decimal.Decimal, error) {
	if tariff.FixedPayment == nil {
		return decimal.Zero, ErrMissingFixedPayment
	}
	return *tariff.FixedPayment, nil
}
