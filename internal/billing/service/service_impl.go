package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallgrid/voltera/internal/billing/domain"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/internal/clock"
	"github.com/smallgrid/voltera/internal/observability/metrics"
	"github.com/smallgrid/voltera/internal/pricing"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clk     clock.Clock
	pricing *pricing.Registry
	metrics *metrics.ReconcileMetrics
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Pricing *pricing.Registry
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("billing.service"),
		genID:   p.GenID,
		clk:     p.Clock,
		pricing: p.Pricing,
		metrics: metrics.Reconcile(),
	}
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req billingdomain.CreateRequest) (*billingdomain.PaymentRequest, error) {
	// Reject bad readings before touching the store or the calculator.
	if req.MeterReading.IsNegative() {
		return nil, billingdomain.ErrInvalidReading
	}

	var client clientdomain.Client
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billingdomain.ErrNotEligible
		}
		return nil, err
	}
	if client.TariffID == nil {
		return nil, billingdomain.ErrNotEligible
	}

	var tariff tariffdomain.Tariff
	err = s.db.WithContext(ctx).Where("id = ?", *client.TariffID).First(&tariff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billingdomain.ErrNotEligible
		}
		return nil, err
	}

	amountDue, err := s.pricing.ComputeAmount(req.MeterReading, tariff)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	requestDate := s.clk.Today()
	record := billingdomain.PaymentRequest{
		ID:             s.genID.Generate(),
		ClientID:       client.ID,
		MeterReading:   req.MeterReading,
		RequestDate:    requestDate,
		PaymentDueDate: requestDate.AddDate(0, 0, billingdomain.DueDateOffsetDays),
		AmountDue:      amountDue,
		IsPaid:         false,
		IsOverdue:      false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	s.log.Info("payment request created",
		zap.String("request_id", record.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("amount_due", amountDue.String()),
	)
	return &record, nil
}

func (s *Service) MarkPaid(ctx context.Context, userID snowflake.ID, requestID string) (*billingdomain.PaymentRequest, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(requestID))
	if err != nil || id == 0 {
		return nil, billingdomain.ErrInvalidID
	}

	var record billingdomain.PaymentRequest
	err = s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billingdomain.ErrRequestNotFound
		}
		return nil, err
	}

	var owner clientdomain.Client
	if err := s.db.WithContext(ctx).Where("id = ?", record.ClientID).First(&owner).Error; err != nil {
		return nil, err
	}
	if owner.UserID != userID {
		return nil, billingdomain.ErrUnauthorized
	}

	err = s.db.WithContext(ctx).
		Model(&billingdomain.PaymentRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_paid":    true,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}

	// Reconciliation is the sole writer of is_overdue; running it here
	// forces the flag false for the freshly paid request.
	if _, err := s.ReconcileOverdue(ctx, s.clk.Today()); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}

	s.log.Info("payment request paid",
		zap.String("request_id", record.ID.String()),
		zap.String("client_id", record.ClientID.String()),
	)
	return &record, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID snowflake.ID, p pagination.Pagination) (pagination.Page[billingdomain.PaymentRequest], error) {
	var page pagination.Page[billingdomain.PaymentRequest]

	// The profile listing is the read trigger that keeps overdue flags
	// consistent with wall-clock time.
	if _, err := s.ReconcileOverdue(ctx, s.clk.Today()); err != nil {
		return page, err
	}

	query := s.db.WithContext(ctx).
		Model(&billingdomain.PaymentRequest{}).
		Where("client_id = ?", clientID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return page, err
	}

	var items []billingdomain.PaymentRequest
	err := query.
		Order("created_at DESC, id DESC").
		Scopes(p.Scope()).
		Find(&items).Error
	if err != nil {
		return page, err
	}

	return pagination.NewPage(items, total, p), nil
}

// ReconcileOverdue performs two predicate-scoped bulk updates. The
// predicates are mutually exclusive, so ordering between the statements
// does not matter and repeating the pass for a fixed date changes
// nothing.
func (s *Service) ReconcileOverdue(ctx context.Context, today time.Time) (billingdomain.ReconcileResult, error) {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Now()

	var result billingdomain.ReconcileResult

	flag := s.db.WithContext(ctx).
		Model(&billingdomain.PaymentRequest{}).
		Where("payment_due_date < ? AND is_paid = ? AND is_overdue = ?", today, false, false).
		Update("is_overdue", true)
	if flag.Error != nil {
		return result, flag.Error
	}
	result.Flagged = flag.RowsAffected

	clear := s.db.WithContext(ctx).
		Model(&billingdomain.PaymentRequest{}).
		Where("(payment_due_date >= ? AND is_overdue = ?) OR (is_paid = ? AND is_overdue = ?)", today, true, true, true).
		Update("is_overdue", false)
	if clear.Error != nil {
		return result, clear.Error
	}
	result.Cleared = clear.RowsAffected

	s.metrics.ObserveRun(time.Since(start), result.Flagged, result.Cleared)

	if result.Flagged > 0 || result.Cleared > 0 {
		s.log.Info("overdue flags reconciled",
			zap.Time("today", today),
			zap.Int64("flagged", result.Flagged),
			zap.Int64("cleared", result.Cleared),
		)
	}
	return result, nil
}
