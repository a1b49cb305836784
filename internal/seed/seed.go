// Package seed bootstraps a fresh installation with a default admin
// account and a starter tariff catalogue.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallgrid/voltera/internal/auth/domain"
	"github.com/smallgrid/voltera/internal/auth/password"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminEmail    = "admin@voltera.local"
	defaultAdminPassword = "admin"
)

// EnsureDefaults seeds the admin user and the starter tariffs. Idempotent:
// existing rows are left alone, so it is safe to run on every startup.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAdminTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureTariffsTx(ctx, tx, node)
	})
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("username = ?", defaultAdminUsername).First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(defaultAdminPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user = authdomain.User{
		ID:           node.Generate(),
		Username:     defaultAdminUsername,
		Email:        strings.ToLower(defaultAdminEmail),
		PasswordHash: hashed,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&user).Error
}

func ensureTariffsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&tariffdomain.Tariff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	perKWhPrice := decimal.NewFromFloat(5.50)
	fixedPrice := decimal.NewFromFloat(1200.00)
	now := time.Now().UTC()
	starters := []tariffdomain.Tariff{
		{
			ID:            node.Generate(),
			Name:          "Standard metered",
			Description:   "Pay for what the meter records each cycle.",
			PaymentMethod: tariffdomain.PaymentMethodPerKWh,
			PricePerKWh:   &perKWhPrice,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            node.Generate(),
			Name:          "Flat monthly",
			Description:   "One fixed charge per cycle regardless of usage.",
			PaymentMethod: tariffdomain.PaymentMethodFixed,
			FixedPayment:  &fixedPrice,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	return tx.WithContext(ctx).Create(&starters).Error
}
