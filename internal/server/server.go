package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallgrid/voltera/internal/audit/domain"
	billingdomain "github.com/smallgrid/voltera/internal/billing/domain"
	"github.com/smallgrid/voltera/internal/auth/token"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/internal/config"
	"github.com/smallgrid/voltera/internal/observability/logger"
	"github.com/smallgrid/voltera/internal/observability/metrics"
	"github.com/smallgrid/voltera/internal/observability/tracing"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	tokens *token.Issuer

	tariffSvc  tariffdomain.Service
	clientSvc  clientdomain.Service
	billingSvc billingdomain.Service
	auditSvc   auditdomain.Service

	loginLimiter *rateLimiter
}

type Params struct {
	fx.In

	Cfg    config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Tokens *token.Issuer

	TariffSvc  tariffdomain.Service
	ClientSvc  clientdomain.Service
	BillingSvc billingdomain.Service
	AuditSvc   auditdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		tokens:       p.Tokens,
		tariffSvc:    p.TariffSvc,
		clientSvc:    p.ClientSvc,
		billingSvc:   p.BillingSvc,
		auditSvc:     p.AuditSvc,
		loginLimiter: newRateLimiter(p.Cfg.Auth.LoginRateLimit, p.Cfg.Auth.LoginRateWindow),
	}
}

// NewEngine builds the gin engine with the ambient middleware chain.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware(cfg.Observability.ServiceName))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	return engine
}

// RegisterRoutes wires every endpoint onto the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	api.POST("/auth/register", s.Register)
	api.POST("/auth/login", s.Login)

	api.GET("/tariffs", s.ListVisibleTariffs)

	admin := api.Group("", s.SessionRequired(), s.AdminRequired())
	admin.GET("/admin/tariffs", s.ListTariffs)
	admin.POST("/tariffs", s.CreateTariff)
	admin.PATCH("/tariffs/:id", s.UpdateTariff)
	admin.DELETE("/tariffs/:id", s.DeleteTariff)

	session := api.Group("", s.SessionRequired())
	session.GET("/profile/:username", s.GetProfile)
	session.PATCH("/profile", s.UpdateProfile)
	session.GET("/payment-requests", s.ListPaymentRequests)
	session.POST("/payment-requests", s.CreatePaymentRequest)
	session.POST("/payment-requests/:id/pay", s.MarkPaymentRequestPaid)
}

func (s *Server) Healthz(c *gin.Context) {
	if err := s.pingDB(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
