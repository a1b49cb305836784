package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/voltera/internal/cache"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTariffTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&tariffdomain.Tariff{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTariffService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:      db,
		log:     zap.NewNop(),
		genID:   node,
		visible: cache.NewTTLCache[string, []tariffdomain.Tariff](),
	}
}

func TestCreateStoresOnlyMatchingPriceField(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)

	unit := decimal.RequireFromString("5.50")
	flat := decimal.RequireFromString("1200.00")
	created, err := svc.Create(context.Background(), tariffdomain.CreateTariffRequest{
		Name:          "metered",
		PaymentMethod: tariffdomain.PaymentMethodPerKWh,
		PricePerKWh:   &unit,
		FixedPayment:  &flat,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PricePerKWh == nil || !created.PricePerKWh.Equal(unit) {
		t.Fatalf("price per kwh = %v, want %s", created.PricePerKWh, unit)
	}
	if created.FixedPayment != nil {
		t.Fatalf("fixed payment must stay unset on a metered plan, got %s", created.FixedPayment)
	}
}

func TestCreateValidatesPricing(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)
	unit := decimal.NewFromInt(5)
	negative := decimal.NewFromInt(-1)

	cases := []struct {
		name string
		req  tariffdomain.CreateTariffRequest
		want error
	}{
		{
			name: "empty name",
			req:  tariffdomain.CreateTariffRequest{PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &unit},
			want: tariffdomain.ErrInvalidName,
		},
		{
			name: "unknown method",
			req:  tariffdomain.CreateTariffRequest{Name: "x", PaymentMethod: "prepaid"},
			want: tariffdomain.ErrInvalidPaymentMethod,
		},
		{
			name: "metered without unit price",
			req:  tariffdomain.CreateTariffRequest{Name: "x", PaymentMethod: tariffdomain.PaymentMethodPerKWh},
			want: tariffdomain.ErrMissingUnitPrice,
		},
		{
			name: "fixed without fixed payment",
			req:  tariffdomain.CreateTariffRequest{Name: "x", PaymentMethod: tariffdomain.PaymentMethodFixed},
			want: tariffdomain.ErrMissingFixedPayment,
		},
		{
			name: "negative price",
			req:  tariffdomain.CreateTariffRequest{Name: "x", PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &negative},
			want: tariffdomain.ErrNegativePrice,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestListVisibleExcludesHidden(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)
	unit := decimal.NewFromInt(5)

	if _, err := svc.Create(context.Background(), tariffdomain.CreateTariffRequest{
		Name: "public", PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &unit,
	}); err != nil {
		t.Fatalf("create public: %v", err)
	}
	if _, err := svc.Create(context.Background(), tariffdomain.CreateTariffRequest{
		Name: "legacy", PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &unit, IsHidden: true,
	}); err != nil {
		t.Fatalf("create hidden: %v", err)
	}

	visible, err := svc.ListVisible(context.Background())
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 1 || visible[0].Name != "public" {
		t.Fatalf("visible = %+v, want only the public plan", visible)
	}
}

func TestListVisibleCacheInvalidatedOnWrite(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)
	unit := decimal.NewFromInt(5)

	if _, err := svc.ListVisible(context.Background()); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if _, err := svc.Create(context.Background(), tariffdomain.CreateTariffRequest{
		Name: "new plan", PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &unit,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	visible, err := svc.ListVisible(context.Background())
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("cache must be invalidated by writes, got %d plans", len(visible))
	}
}

func TestUpdateRejectsMismatchedPriceField(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)
	unit := decimal.NewFromInt(5)

	created, err := svc.Create(context.Background(), tariffdomain.CreateTariffRequest{
		Name: "metered", PaymentMethod: tariffdomain.PaymentMethodPerKWh, PricePerKWh: &unit,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	flat := decimal.NewFromInt(100)
	_, err = svc.Update(context.Background(), created.ID.String(), tariffdomain.UpdateTariffRequest{
		FixedPayment: &flat,
	})
	if !errors.Is(err, tariffdomain.ErrInvalidPaymentMethod) {
		t.Fatalf("expected method mismatch, got %v", err)
	}

	newUnit := decimal.RequireFromString("6.25")
	hidden := true
	updated, err := svc.Update(context.Background(), created.ID.String(), tariffdomain.UpdateTariffRequest{
		PricePerKWh: &newUnit,
		IsHidden:    &hidden,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.PricePerKWh.Equal(newUnit) || !updated.IsHidden {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestDeleteUnknownTariff(t *testing.T) {
	db := setupTariffTestDB(t)
	svc := newTariffService(t, db)

	if err := svc.Delete(context.Background(), "garbage"); !errors.Is(err, tariffdomain.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	missing := svc.genID.Generate()
	if err := svc.Delete(context.Background(), missing.String()); !errors.Is(err, tariffdomain.ErrTariffNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
