package auth

import (
	"github.com/smallgrid/voltera/internal/auth/token"
	"github.com/smallgrid/voltera/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(func(cfg config.Config) (*token.Issuer, error) {
		return token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	}),
)
