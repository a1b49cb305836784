package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallgrid/voltera/internal/audit/domain"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/internal/observability/logger"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Password       string `json:"password"`
	ClientType     string `json:"client_type"`
	ContractNumber string `json:"contract_number"`
	TariffID       string `json:"tariff_id"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user plus its client record and opens a session.
func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.clientSvc.Register(c.Request.Context(), clientdomain.RegisterRequest{
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Password:       req.Password,
		ClientType:     clientdomain.ClientType(req.ClientType),
		ContractNumber: req.ContractNumber,
		TariffID:       req.TariffID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c.Request.Context(), profile.User.ID, auditdomain.ActionClientRegistered,
		"client", profile.Client.ID.String(), map[string]any{
			"username":    profile.User.Username,
			"client_type": string(profile.Client.ClientType),
		})

	sessionToken, err := s.tokens.Issue(profile.User.ID, time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   sessionToken,
		"profile": profile,
	})
}

// Login verifies credentials and returns a session token. Attempts are
// rate limited per source address.
func (s *Server) Login(c *gin.Context) {
	if !s.loginLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.clientSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sessionToken, err := s.tokens.Issue(user.ID, time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": sessionToken,
		"user":  user,
	})
}

// recordAudit appends an audit entry without failing the request.
func (s *Server) recordAudit(ctx context.Context, actorID snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	actor := actorID.String()
	if err := s.auditSvc.Record(ctx, &actor, action, targetType, &targetID, metadata); err != nil {
		logger.FromContext(ctx).Warn("audit record failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
