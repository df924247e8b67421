package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/herbtrace/herbtrace/internal/actorctx"
	"github.com/herbtrace/herbtrace/internal/audit"
	auditdomain "github.com/herbtrace/herbtrace/internal/audit/domain"
	"github.com/herbtrace/herbtrace/internal/batch"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	"github.com/herbtrace/herbtrace/internal/compliance"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/config"
	"github.com/herbtrace/herbtrace/internal/ledgeranchor"
	"github.com/herbtrace/herbtrace/internal/locking"
	"github.com/herbtrace/herbtrace/internal/observability"
	obslogger "github.com/herbtrace/herbtrace/internal/observability/logger"
	obsmetrics "github.com/herbtrace/herbtrace/internal/observability/metrics"
	"github.com/herbtrace/herbtrace/internal/report"
	reportdomain "github.com/herbtrace/herbtrace/internal/report/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	locking.Module,
	ledgeranchor.Module,
	audit.Module,
	batch.Module,
	compliance.Module,
	report.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
	db            *gorm.DB
	genID         *snowflake.Node
	batchSvc      batchdomain.Service
	complianceSvc compliancedomain.Service
	reportSvc     reportdomain.Service
	auditSvc      auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	BatchSvc      batchdomain.Service
	ComplianceSvc compliancedomain.Service
	ReportSvc     reportdomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		batchSvc:      p.BatchSvc,
		complianceSvc: p.ComplianceSvc,
		reportSvc:     p.ReportSvc,
		auditSvc:      p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	// -------- Batches --------
	api.POST("/batches", s.CreateBatch)
	api.GET("/batches", s.ListBatches)
	api.GET("/batches/:batchId", s.GetBatch)
	api.GET("/batches/:batchId/timeline", s.GetBatchTimeline)
	api.DELETE("/batches/:batchId", s.RequireRole(actorctx.RoleAdmin), s.DeleteBatch)

	// -------- Events --------
	api.POST("/events", s.AppendEvent)
	api.PATCH("/events/:eventId", s.UpdateEvent)

	// -------- Compliance --------
	api.POST("/compliance/check", s.CheckCompliance)
	api.GET("/compliance/violations", s.ListViolations)
	api.GET("/compliance/report/:batchId", s.GetComplianceReport)

	// -------- Audit --------
	api.GET("/audit-logs", s.RequireRole(actorctx.RoleAdmin, actorctx.RoleRegulator), s.ListAuditLogs)
}
