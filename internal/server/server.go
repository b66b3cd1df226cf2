package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/ridepay/internal/auth/domain"
	"github.com/smallbiznis/ridepay/internal/auth/session"
	"github.com/smallbiznis/ridepay/internal/authorization"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/config"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	coupondomain "github.com/smallbiznis/ridepay/internal/coupon/domain"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/observability"
	obsmiddleware "github.com/smallbiznis/ridepay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ridepay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ridepay/internal/observability/tracing"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	webhookdomain "github.com/smallbiznis/ridepay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain and the
// ops endpoints.
func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	out := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			out.AllowAllOrigins = true
			return out
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		out.AllowAllOrigins = true
		return out
	}
	out.AllowOrigins = cfg.AllowOrigins
	return out
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	hostname string

	authsvc    authdomain.Service
	sessions   *session.Manager
	authzSvc   authorization.Service
	accounts   coreservicedomain.Accounts
	cardSvc    carddomain.Service
	recordSvc  recorddomain.Service
	dunningSvc dunningdomain.Service
	couponSvc  coupondomain.Service
	groupSvc   coupongroupdomain.Service
	gatewaySvc gatewaydomain.Service
	webhookSvc webhookdomain.Service

	tracker    errtrack.Reporter
	limiter    *ratelimit.APILimiter
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Authsvc    authdomain.Service
	Sessions   *session.Manager
	AuthzSvc   authorization.Service
	Accounts   coreservicedomain.Accounts
	CardSvc    carddomain.Service
	RecordSvc  recorddomain.Service
	DunningSvc dunningdomain.Service
	CouponSvc  coupondomain.Service
	GroupSvc   coupongroupdomain.Service
	GatewaySvc gatewaydomain.Service
	WebhookSvc webhookdomain.Service
	Tracker    errtrack.Reporter
	Limiter    *ratelimit.APILimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	hostname, _ := os.Hostname()
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		hostname:   hostname,
		authsvc:    p.Authsvc,
		sessions:   p.Sessions,
		authzSvc:   p.AuthzSvc,
		accounts:   p.Accounts,
		cardSvc:    p.CardSvc,
		recordSvc:  p.RecordSvc,
		dunningSvc: p.DunningSvc,
		couponSvc:  p.CouponSvc,
		groupSvc:   p.GroupSvc,
		gatewaySvc: p.GatewaySvc,
		webhookSvc: p.WebhookSvc,
		tracker:    p.Tracker,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
	}

	svc.engine.Use(svc.ErrorHandlingMiddleware())

	svc.engine.GET("/", svc.ServiceInfo)
	svc.registerUserRoutes()
	svc.registerInternalRoutes()
	svc.registerWebhookRoutes()
	svc.registerGatewayRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerUserRoutes() {
	user := s.engine.Group("", s.UserRequired(), s.UserRateLimit())

	cards := user.Group("/cards")
	{
		cards.GET("", s.authorizeAction(authorization.ObjectCard, authorization.ActionView), s.ListCards)
		cards.POST("", s.authorizeAction(authorization.ObjectCard, authorization.ActionCreate), s.RegisterCard)
		cards.POST("/orderBy", s.authorizeAction(authorization.ObjectCard, authorization.ActionReorder), s.ReorderCards)
		cards.GET("/:cardId", s.authorizeAction(authorization.ObjectCard, authorization.ActionView), s.GetCard)
		cards.DELETE("/:cardId", s.authorizeAction(authorization.ObjectCard, authorization.ActionDelete), s.RevokeCard)
	}

	coupons := user.Group("/coupons")
	{
		coupons.GET("", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionView), s.ListCoupons)
		coupons.POST("", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionCreate), s.EnrollCoupon)
		coupons.GET("/:couponId", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionView), s.GetCoupon)
		coupons.GET("/:couponId/redeem", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionRedeem), s.RedeemCoupon)
		coupons.DELETE("/:couponId", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionDelete), s.DeleteCoupon)
	}

	records := user.Group("/records")
	{
		records.GET("", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.ListRecords)
		records.GET("/:recordId", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.GetRecord)
		records.GET("/:recordId/retry", s.authorizeAction(authorization.ObjectRecord, authorization.ActionRetry), s.RetryRecord)
	}
}

func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal", s.InternalRequired())

	internal.GET("/records", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.ListAllRecords)

	groups := internal.Group("/couponGroups")
	{
		groups.GET("", s.authorizeAction(authorization.ObjectCouponGroup, authorization.ActionView), s.ListCouponGroups)
		groups.POST("", s.authorizeAction(authorization.ObjectCouponGroup, authorization.ActionCreate), s.CreateCouponGroup)
		groups.GET("/:couponGroupId", s.authorizeAction(authorization.ObjectCouponGroup, authorization.ActionView), s.GetCouponGroup)
		groups.POST("/:couponGroupId", s.authorizeAction(authorization.ObjectCouponGroup, authorization.ActionUpdate), s.ModifyCouponGroup)
		groups.DELETE("/:couponGroupId", s.authorizeAction(authorization.ObjectCouponGroup, authorization.ActionDelete), s.DeleteCouponGroup)
	}

	user := internal.Group("/:userId", s.InternalUser())

	user.GET("/ready", s.authorizeAction(authorization.ObjectReadiness, authorization.ActionView), s.CheckReady)

	cards := user.Group("/cards")
	{
		cards.GET("", s.authorizeAction(authorization.ObjectCard, authorization.ActionView), s.ListCards)
		cards.POST("", s.authorizeAction(authorization.ObjectCard, authorization.ActionCreate), s.RegisterCard)
		cards.POST("/orderBy", s.authorizeAction(authorization.ObjectCard, authorization.ActionReorder), s.ReorderCards)
		cards.GET("/:cardId", s.authorizeAction(authorization.ObjectCard, authorization.ActionView), s.GetCard)
		cards.DELETE("/:cardId", s.authorizeAction(authorization.ObjectCard, authorization.ActionDelete), s.RevokeCard)
	}

	records := user.Group("/records")
	{
		records.GET("", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.ListRecords)
		records.POST("", s.authorizeAction(authorization.ObjectRecord, authorization.ActionCreate), s.CreateRecord)
		records.GET("/:recordId", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.GetRecord)
		records.GET("/:recordId/dunnings", s.authorizeAction(authorization.ObjectRecord, authorization.ActionView), s.ListRecordDunnings)
		records.GET("/:recordId/retry", s.authorizeAction(authorization.ObjectRecord, authorization.ActionRetry), s.RetryRecord)
		records.POST("/:recordId/refund", s.authorizeAction(authorization.ObjectRecord, authorization.ActionRefund), s.RefundRecord)
	}

	coupons := user.Group("/coupons")
	{
		coupons.GET("", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionView), s.ListCoupons)
		coupons.POST("", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionCreate), s.EnrollCoupon)
		coupons.GET("/:couponId", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionView), s.GetCoupon)
		coupons.GET("/:couponId/redeem", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionRedeem), s.RedeemCoupon)
		coupons.POST("/:couponId", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionUpdate), s.ModifyCoupon)
		coupons.DELETE("/:couponId", s.authorizeAction(authorization.ObjectCoupon, authorization.ActionDelete), s.DeleteCoupon)
	}
}

func (s *Server) registerWebhookRoutes() {
	webhook := s.engine.Group("/webhook", s.InternalRequired(), s.authorizeAction(authorization.ObjectWebhook, authorization.ActionIngest))

	webhook.POST("/payment", s.OnPaymentWebhook)
	webhook.POST("/refund", s.OnRefundWebhook)
}

func (s *Server) registerGatewayRoutes() {
	invoke := s.authorizeAction(authorization.ObjectGateway, authorization.ActionInvoke)

	direct := s.engine.Group("/direct", s.InternalRequired(), invoke)
	direct.POST("/generate", s.DirectGenerate)
	direct.POST("/invoke", s.DirectInvoke)

	legacy := s.engine.Group("/legacy", s.InternalRequired(), invoke)
	legacy.POST("/generate", s.LegacyGenerate)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrInvalidAPI)
	})
}

// ServiceInfo answers GET / with the running mode and host.
func (s *Server) ServiceInfo(c *gin.Context) {
	respond(c, gin.H{
		"name":    s.cfg.AppName,
		"version": s.cfg.AppVersion,
		"mode":    s.cfg.Environment,
		"cluster": s.hostname,
	})
}

// respond writes a success body, always carrying opcode 0.
func respond(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["opcode"] = OpcodeSuccess
	c.JSON(http.StatusOK, body)
}
