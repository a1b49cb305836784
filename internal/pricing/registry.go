package pricing

import (
	"github.com/shopspring/decimal"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
)

// Registry resolves a payment method to its registered calculator.
type Registry struct {
	calculators map[tariffdomain.PaymentMethod]Calculator
}

// NewRegistry builds a registry from the given calculators. Adding a new
// payment method means registering a new Calculator here, call sites
// stay untouched.
func NewRegistry(calculators ...Calculator) *Registry {
	byMethod := make(map[tariffdomain.PaymentMethod]Calculator, len(calculators))
	for _, calc := range calculators {
		byMethod[calc.Method()] = calc
	}
	return &Registry{calculators: byMethod}
}

// DefaultRegistry registers the built-in per-kWh and fixed calculators.
func DefaultRegistry() *Registry {
	return NewRegistry(perKWhCalculator{}, fixedCalculator{})
}

// Resolve returns the calculator for a payment method.
func (r *Registry) Resolve(method tariffdomain.PaymentMethod) (Calculator, error) {
	calc, ok := r.calculators[method]
	if !ok {
		return nil, ErrUnknownPaymentMethod
	}
	return calc, nil
}

// ComputeAmount resolves the tariff's calculation rule and applies it to
// the reading. Pure function of its inputs.
func (r *Registry) ComputeAmount(reading decimal.Decimal, tariff tariffdomain.Tariff) (decimal.Decimal, error) {
	calc, err := r.Resolve(tariff.PaymentMethod)
	if err != nil {
		return decimal.Zero, err
	}
	return calc.Amount(reading, tariff)
}
