package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/voltera/pkg/db/pagination"
)

type Service interface {
	// Create validates the reading, computes the amount due and due date,
	// and persists the request. This is the only place those fields are
	// ever written.
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*PaymentRequest, error)
	// MarkPaid flips the paid flag. Only the owning client may do this;
	// a reconciliation pass follows so overdue is forced false.
	MarkPaid(ctx context.Context, userID snowflake.ID, requestID string) (*PaymentRequest, error)
	// ListByClient reconciles overdue flags against today, then returns a
	// page of the client's requests, newest first.
	ListByClient(ctx context.Context, clientID snowflake.ID, p pagination.Pagination) (pagination.Page[PaymentRequest], error)
	// ReconcileOverdue recomputes overdue flags against the given date.
	// Idempotent; safe to run on every read.
	ReconcileOverdue(ctx context.Context, today time.Time) (ReconcileResult, error)
}

type CreateRequest struct {
	MeterReading decimal.Decimal
}

// ReconcileResult counts the rows each bulk update touched.
type ReconcileResult struct {
	Flagged int64
	Cleared int64
}

var (
	ErrInvalidReading  = errors.New("invalid_meter_reading")
	ErrNotEligible     = errors.New("client_not_eligible")
	ErrUnauthorized    = errors.New("request_not_owned")
	ErrRequestNotFound = errors.New("payment_request_not_found")
	ErrInvalidID       = errors.New("invalid_request_id")
)
