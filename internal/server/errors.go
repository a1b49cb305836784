package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallgrid/voltera/internal/billing/domain"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/internal/observability/logger"
	"github.com/smallgrid/voltera/internal/pricing"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// apiError is the wire shape for every failed request.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e apiError) Error() string { return e.Code }

func newValidationError(field, code, message string) apiError {
	return apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

func invalidRequestError() apiError {
	return apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

// AbortWithError maps domain errors to distinguishable user-visible
// responses; anything unmapped becomes an opaque 500.
func AbortWithError(c *gin.Context, err error) {
	resp := classify(err)
	if resp.Status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(resp.Status, gin.H{"error": resp})
}

func classify(err error) apiError {
	var typed apiError
	if errors.As(err, &typed) {
		if typed.Status == 0 {
			typed.Status = http.StatusBadRequest
		}
		return typed
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	case errors.Is(err, ErrForbidden):
		return apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	case errors.Is(err, ErrRateLimited):
		return apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many attempts, slow down"}

	// Payment request lifecycle.
	case errors.Is(err, billingdomain.ErrInvalidReading):
		return newValidationError("meter_reading", "invalid_meter_reading", "meter reading cannot be negative")
	case errors.Is(err, billingdomain.ErrNotEligible):
		return apiError{Status: http.StatusForbidden, Code: "client_not_eligible", Message: "only clients with a tariff can submit payment requests"}
	case errors.Is(err, billingdomain.ErrUnauthorized):
		return apiError{Status: http.StatusForbidden, Code: "request_not_owned", Message: "you cannot modify another client's payment request"}
	case errors.Is(err, billingdomain.ErrRequestNotFound):
		return apiError{Status: http.StatusNotFound, Code: "payment_request_not_found", Message: "payment request not found"}
	case errors.Is(err, billingdomain.ErrInvalidID):
		return newValidationError("id", "invalid_request_id", "invalid payment request id")

	// Pricing.
	case errors.Is(err, pricing.ErrUnknownPaymentMethod):
		return apiError{Status: http.StatusUnprocessableEntity, Code: "unknown_payment_method", Message: "tariff references an unknown payment method"}
	case errors.Is(err, pricing.ErrMissingUnitPrice):
		return apiError{Status: http.StatusUnprocessableEntity, Code: "missing_unit_price", Message: "tariff has no unit price configured"}
	case errors.Is(err, pricing.ErrMissingFixedPayment):
		return apiError{Status: http.StatusUnprocessableEntity, Code: "missing_fixed_payment", Message: "tariff has no fixed payment configured"}

	// Accounts.
	case errors.Is(err, clientdomain.ErrInvalidCredentials):
		return apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid username or password"}
	case errors.Is(err, clientdomain.ErrInvalidUsername):
		return newValidationError("username", "invalid_username", "username is required")
	case errors.Is(err, clientdomain.ErrUsernameTaken):
		return newValidationError("username", "username_taken", "username is already in use")
	case errors.Is(err, clientdomain.ErrInvalidPassword):
		return newValidationError("password", "invalid_password", "password is required")
	case errors.Is(err, clientdomain.ErrInvalidClientType):
		return newValidationError("client_type", "invalid_client_type", "client type must be individual or legal")
	case errors.Is(err, clientdomain.ErrMissingContractNumber):
		return newValidationError("contract_number", "missing_contract_number", "contract number is required")
	case errors.Is(err, clientdomain.ErrContractNumberTaken):
		return newValidationError("contract_number", "contract_number_taken", "contract number is already in use")
	case errors.Is(err, clientdomain.ErrInvalidTariff):
		return newValidationError("tariff_id", "invalid_tariff", "tariff does not exist")
	case errors.Is(err, clientdomain.ErrTariffNotAvailable):
		return newValidationError("tariff_id", "tariff_not_available", "tariff is not open for signup")
	case errors.Is(err, clientdomain.ErrUserNotFound), errors.Is(err, clientdomain.ErrClientNotFound):
		return apiError{Status: http.StatusNotFound, Code: "client_not_found", Message: "client not found"}

	// Tariff administration.
	case errors.Is(err, tariffdomain.ErrTariffNotFound):
		return apiError{Status: http.StatusNotFound, Code: "tariff_not_found", Message: "tariff not found"}
	case errors.Is(err, tariffdomain.ErrInvalidID):
		return newValidationError("id", "invalid_tariff_id", "invalid tariff id")
	case errors.Is(err, tariffdomain.ErrInvalidName):
		return newValidationError("name", "invalid_tariff_name", "tariff name is required")
	case errors.Is(err, tariffdomain.ErrInvalidPaymentMethod):
		return newValidationError("payment_method", "invalid_payment_method", "payment method must be per_kwh or fixed")
	case errors.Is(err, tariffdomain.ErrMissingUnitPrice):
		return newValidationError("price_per_kwh", "missing_unit_price", "per_kwh tariffs require a unit price")
	case errors.Is(err, tariffdomain.ErrMissingFixedPayment):
		return newValidationError("fixed_payment", "missing_fixed_payment", "fixed tariffs require a fixed payment")
	case errors.Is(err, tariffdomain.ErrNegativePrice):
		return newValidationError("price", "negative_price", "prices cannot be negative")

	default:
		return apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
	}
}
