package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallgrid/voltera/pkg/db/pagination"
)

type Service interface {
	// ListVisible returns tariffs open for new signups, hidden plans excluded.
	ListVisible(ctx context.Context) ([]Tariff, error)
	List(ctx context.Context, p pagination.Pagination) (pagination.Page[Tariff], error)
	GetByID(ctx context.Context, id string) (*Tariff, error)
	Create(ctx context.Context, req CreateTariffRequest) (*Tariff, error)
	Update(ctx context.Context, id string, req UpdateTariffRequest) (*Tariff, error)
	Delete(ctx context.Context, id string) error
}

type CreateTariffRequest struct {
	Name          string
	Description   string
	PaymentMethod PaymentMethod
	PricePerKWh   *decimal.Decimal
	FixedPayment  *decimal.Decimal
	IsHidden      bool
}

type UpdateTariffRequest struct {
	Name         *string
	Description  *string
	PricePerKWh  *decimal.Decimal
	FixedPayment *decimal.Decimal
	IsHidden     *bool
}

var (
	ErrTariffNotFound       = errors.New("tariff_not_found")
	ErrInvalidID            = errors.New("invalid_tariff_id")
	ErrInvalidName          = errors.New("invalid_tariff_name")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrMissingUnitPrice     = errors.New("missing_unit_price")
	ErrMissingFixedPayment  = errors.New("missing_fixed_payment")
	ErrNegativePrice        = errors.New("negative_price")
)
