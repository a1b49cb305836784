package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallgrid/voltera/internal/audit/domain"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
)

type createTariffRequest struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	PaymentMethod string           `json:"payment_method"`
	PricePerKWh   *decimal.Decimal `json:"price_per_kwh"`
	FixedPayment  *decimal.Decimal `json:"fixed_payment"`
	IsHidden      bool             `json:"is_hidden"`
}

type updateTariffRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	PricePerKWh  *decimal.Decimal `json:"price_per_kwh"`
	FixedPayment *decimal.Decimal `json:"fixed_payment"`
	IsHidden     *bool            `json:"is_hidden"`
}

// ListVisibleTariffs returns the plans open for signup. Public.
func (s *Server) ListVisibleTariffs(c *gin.Context) {
	tariffs, err := s.tariffSvc.ListVisible(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tariffs})
}

// ListTariffs returns every tariff including hidden ones. Admin only.
func (s *Server) ListTariffs(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.tariffSvc.List(c.Request.Context(), p)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) CreateTariff(c *gin.Context) {
	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tariff, err := s.tariffSvc.Create(c.Request.Context(), tariffdomain.CreateTariffRequest{
		Name:          req.Name,
		Description:   req.Description,
		PaymentMethod: tariffdomain.PaymentMethod(req.PaymentMethod),
		PricePerKWh:   req.PricePerKWh,
		FixedPayment:  req.FixedPayment,
		IsHidden:      req.IsHidden,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if actorID, ok := s.userIDFromSession(c); ok {
		s.recordAudit(c.Request.Context(), actorID, auditdomain.ActionTariffCreated,
			"tariff", tariff.ID.String(), map[string]any{
				"name":           tariff.Name,
				"payment_method": string(tariff.PaymentMethod),
			})
	}

	c.JSON(http.StatusCreated, tariff)
}

func (s *Server) UpdateTariff(c *gin.Context) {
	var req updateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tariff, err := s.tariffSvc.Update(c.Request.Context(), c.Param("id"), tariffdomain.UpdateTariffRequest{
		Name:         req.Name,
		Description:  req.Description,
		PricePerKWh:  req.PricePerKWh,
		FixedPayment: req.FixedPayment,
		IsHidden:     req.IsHidden,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if actorID, ok := s.userIDFromSession(c); ok {
		s.recordAudit(c.Request.Context(), actorID, auditdomain.ActionTariffUpdated,
			"tariff", tariff.ID.String(), map[string]any{"name": tariff.Name})
	}

	c.JSON(http.StatusOK, tariff)
}

func (s *Server) DeleteTariff(c *gin.Context) {
	id := c.Param("id")
	if err := s.tariffSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if actorID, ok := s.userIDFromSession(c); ok {
		s.recordAudit(c.Request.Context(), actorID, auditdomain.ActionTariffDeleted,
			"tariff", id, nil)
	}

	c.Status(http.StatusNoContent)
}
