package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallgrid/voltera/internal/audit/domain"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
)

type updateProfileRequest struct {
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	ClientType     *string `json:"client_type"`
	ContractNumber *string `json:"contract_number"`
	TariffID       *string `json:"tariff_id"`
}

// GetProfile returns a client's profile together with a page of its
// payment requests. Reading the profile runs the overdue reconciliation
// first, so the flags shown are current as of today.
func (s *Server) GetProfile(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.clientSvc.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	requests, err := s.billingSvc.ListByClient(c.Request.Context(), profile.Client.ID, p)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             profile.User,
		"client":           profile.Client,
		"payment_requests": requests,
	})
}

// UpdateProfile updates the session user's account and client record.
func (s *Server) UpdateProfile(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var clientType *clientdomain.ClientType
	if req.ClientType != nil {
		ct := clientdomain.ClientType(*req.ClientType)
		clientType = &ct
	}

	profile, err := s.clientSvc.UpdateProfile(c.Request.Context(), userID, clientdomain.UpdateProfileRequest{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ClientType:     clientType,
		ContractNumber: req.ContractNumber,
		TariffID:       req.TariffID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c.Request.Context(), userID, auditdomain.ActionProfileUpdated,
		"client", profile.Client.ID.String(), nil)

	c.JSON(http.StatusOK, profile)
}
