package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/voltera/internal/cache"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	visibleCacheKey = "tariffs:visible"
	visibleCacheTTL = 30 * time.Second
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	visible cache.Cache[string, []tariffdomain.Tariff]
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p Params) tariffdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("tariff.service"),
		genID:   p.GenID,
		visible: cache.NewTTLCache[string, []tariffdomain.Tariff](),
	}
}

func (s *Service) ListVisible(ctx context.Context) ([]tariffdomain.Tariff, error) {
	if cached, ok := s.visible.Get(visibleCacheKey); ok {
		return cached, nil
	}

	var tariffs []tariffdomain.Tariff
	err := s.db.WithContext(ctx).
		Where("is_hidden = ?", false).
		Order("created_at DESC").
		Find(&tariffs).Error
	if err != nil {
		return nil, err
	}

	s.visible.Set(visibleCacheKey, tariffs, visibleCacheTTL)
	return tariffs, nil
}

func (s *Service) List(ctx context.Context, p pagination.Pagination) (pagination.Page[tariffdomain.Tariff], error) {
	var page pagination.Page[tariffdomain.Tariff]

	var total int64
	if err := s.db.WithContext(ctx).Model(&tariffdomain.Tariff{}).Count(&total).Error; err != nil {
		return page, err
	}

	var tariffs []tariffdomain.Tariff
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Scopes(p.Scope()).
		Find(&tariffs).Error
	if err != nil {
		return page, err
	}

	return pagination.NewPage(tariffs, total, p), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*tariffdomain.Tariff, error) {
	tariffID, err := parseID(id)
	if err != nil {
		return nil, tariffdomain.ErrInvalidID
	}

	var tariff tariffdomain.Tariff
	err = s.db.WithContext(ctx).Where("id = ?", tariffID).First(&tariff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tariffdomain.ErrTariffNotFound
		}
		return nil, err
	}
	return &tariff, nil
}

func (s *Service) Create(ctx context.Context, req tariffdomain.CreateTariffRequest) (*tariffdomain.Tariff, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tariffdomain.ErrInvalidName
	}
	if err := validatePricing(req.PaymentMethod, req.PricePerKWh, req.FixedPayment); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tariff := tariffdomain.Tariff{
		ID:            s.genID.Generate(),
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		PaymentMethod: req.PaymentMethod,
		IsHidden:      req.IsHidden,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Only the field matching the method is stored; the other stays null.
	switch req.PaymentMethod {
	case tariffdomain.PaymentMethodPerKWh:
		tariff.PricePerKWh = req.PricePerKWh
	case tariffdomain.PaymentMethodFixed:
		tariff.FixedPayment = req.FixedPayment
	}

	if err := s.db.WithContext(ctx).Create(&tariff).Error; err != nil {
		return nil, err
	}

	s.visible.Invalidate(visibleCacheKey)
	s.log.Info("tariff created",
		zap.String("tariff_id", tariff.ID.String()),
		zap.String("payment_method", string(tariff.PaymentMethod)),
	)
	return &tariff, nil
}

func (s *Service) Update(ctx context.Context, id string, req tariffdomain.UpdateTariffRequest) (*tariffdomain.Tariff, error) {
	tariff, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, tariffdomain.ErrInvalidName
		}
		tariff.Name = name
	}
	if req.Description != nil {
		tariff.Description = strings.TrimSpace(*req.Description)
	}
	if req.PricePerKWh != nil {
		if tariff.PaymentMethod != tariffdomain.PaymentMethodPerKWh {
			return nil, tariffdomain.ErrInvalidPaymentMethod
		}
		if req.PricePerKWh.IsNegative() {
			return nil, tariffdomain.ErrNegativePrice
		}
		tariff.PricePerKWh = req.PricePerKWh
	}
	if req.FixedPayment != nil {
		if tariff.PaymentMethod != tariffdomain.PaymentMethodFixed {
			return nil, tariffdomain.ErrInvalidPaymentMethod
		}
		if req.FixedPayment.IsNegative() {
			return nil, tariffdomain.ErrNegativePrice
		}
		tariff.FixedPayment = req.FixedPayment
	}
	if req.IsHidden != nil {
		tariff.IsHidden = *req.IsHidden
	}
	tariff.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(tariff).Error; err != nil {
		return nil, err
	}

	s.visible.Invalidate(visibleCacheKey)
	return tariff, nil
}

// Delete removes the plan. Clients referencing it keep their accounts;
// the store clears their tariff reference via ON DELETE SET NULL.
func (s *Service) Delete(ctx context.Context, id string) error {
	tariffID, err := parseID(id)
	if err != nil {
		return tariffdomain.ErrInvalidID
	}

	res := s.db.WithContext(ctx).Where("id = ?", tariffID).Delete(&tariffdomain.Tariff{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tariffdomain.ErrTariffNotFound
	}

	s.visible.Invalidate(visibleCacheKey)
	s.log.Info("tariff deleted", zap.String("tariff_id", tariffID.String()))
	return nil
}

func validatePricing(method tariffdomain.PaymentMethod, pricePerKWh, fixedPayment *decimal.Decimal) error {
	if !method.Valid() {
		return tariffdomain.ErrInvalidPaymentMethod
	}
	switch method {
	case tariffdomain.PaymentMethodPerKWh:
		if pricePerKWh == nil {
			return tariffdomain.ErrMissingUnitPrice
		}
		if pricePerKWh.IsNegative() {
			return tariffdomain.ErrNegativePrice
		}
	case tariffdomain.PaymentMethodFixed:
		if fixedPayment == nil {
			return tariffdomain.ErrMissingFixedPayment
		}
		if fixedPayment.IsNegative() {
			return tariffdomain.ErrNegativePrice
		}
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, tariffdomain.ErrInvalidID
	}
	return id, nil
}
