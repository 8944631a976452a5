package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/api/handlers"
	"github.com/swasthwrap/healthvault/internal/api/middleware"
	"github.com/swasthwrap/healthvault/internal/config"
	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/services"
	"github.com/swasthwrap/healthvault/pkg/metrics"
)

type Router struct {
	engine          *gin.Engine
	logger          *zap.Logger
	metrics         *metrics.MetricsCollector
	recordHandler   *handlers.RecordHandler
	verifyHandler   *handlers.VerifyHandler
	identityHandler *handlers.IdentityHandler
	demoHandler     *handlers.DemoHandler
	reqMiddleware   *middleware.RequestMiddleware
}

func NewRouter(
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
	cfg *config.Configuration,
	store records.Store,
	intakeService *services.IntakeService,
	verifyService *services.VerifyService,
) *Router {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	metricsMiddleware := middleware.NewMetricsMiddleware(collector)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(metricsMiddleware.CollectRequest())

	recordHandler := handlers.NewRecordHandler(intakeService, store, cfg.Ledger.Network, logger)
	verifyHandler := handlers.NewVerifyHandler(verifyService, logger)
	identityHandler := handlers.NewIdentityHandler(cfg, logger)
	demoHandler := handlers.NewDemoHandler(store, logger)

	return &Router{
		engine:          engine,
		logger:          logger,
		metrics:         collector,
		recordHandler:   recordHandler,
		verifyHandler:   verifyHandler,
		identityHandler: identityHandler,
		demoHandler:     demoHandler,
		reqMiddleware:   reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "healthvault"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
			"sizes":     r.metrics.GetSizes(),
		})
	})

	api := r.engine.Group("/api")
	{
		api.POST("/medical-records/upload", r.recordHandler.UploadRecord)
		api.GET("/medical-records/user/:userAddress", r.recordHandler.ListUserRecords)
		api.POST("/verify/document", r.verifyHandler.VerifyDocument)
		api.POST("/users/create-did", r.identityHandler.CreateDID)
		api.GET("/contract/info", r.identityHandler.ContractInfo)
		api.GET("/providers", r.demoHandler.ListProviders)
		api.POST("/demo/seed", r.demoHandler.SeedDemoData)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
