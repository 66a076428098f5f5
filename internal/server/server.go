package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ratecell/ratecell/internal/clock"
	"github.com/ratecell/ratecell/internal/config"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	clock         clock.Clock
	tariffSvc     tariffdomain.Service
	subscriberSvc subscriberdomain.Service
	usageSvc      usagedomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Clock         clock.Clock
	TariffSvc     tariffdomain.Service
	SubscriberSvc subscriberdomain.Service
	UsageSvc      usagedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		clock:         p.Clock,
		tariffSvc:     p.TariffSvc,
		subscriberSvc: p.SubscriberSvc,
		usageSvc:      p.UsageSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- CDRs --------
	api.POST("/cdrs/ingest", s.IngestCDR)
	api.GET("/cdrs", s.ListUsageRecords)
	api.GET("/cdrs/:id", s.GetRatedEvent)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.POST("/plans", s.CreatePlan)

	// -------- Subscribers --------
	api.GET("/subscribers", s.ListSubscribers)
	api.GET("/subscribers/:msisdn", s.GetSubscriber)
	api.GET("/subscribers/:msisdn/usage", s.GetUsageSummary)
}
