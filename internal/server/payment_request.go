package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallgrid/voltera/internal/audit/domain"
	billingdomain "github.com/smallgrid/voltera/internal/billing/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
)

type createPaymentRequestBody struct {
	MeterReading decimal.Decimal `json:"meter_reading"`
}

// ListPaymentRequests returns the session client's requests, newest first.
func (s *Server) ListPaymentRequests(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	client, err := s.clientSvc.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page, err := s.billingSvc.ListByClient(c.Request.Context(), client.ID, p)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePaymentRequest submits a meter reading. Amount due and due date
// are computed server side from the client's tariff.
func (s *Server) CreatePaymentRequest(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body createPaymentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	request, err := s.billingSvc.Create(c.Request.Context(), userID, billingdomain.CreateRequest{
		MeterReading: body.MeterReading,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c.Request.Context(), userID, auditdomain.ActionPaymentRequestCreated,
		"payment_request", request.ID.String(), map[string]any{
			"meter_reading": request.MeterReading.String(),
			"amount_due":    request.AmountDue.String(),
		})

	c.JSON(http.StatusCreated, request)
}

// MarkPaymentRequestPaid settles a request owned by the session client.
func (s *Server) MarkPaymentRequestPaid(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	request, err := s.billingSvc.MarkPaid(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c.Request.Context(), userID, auditdomain.ActionPaymentRequestPaid,
		"payment_request", request.ID.String(), nil)

	c.JSON(http.StatusOK, request)
}
