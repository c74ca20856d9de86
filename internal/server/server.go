package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/bldragon101/worklog-sub001/internal/audit"
	auditdomain "github.com/bldragon101/worklog-sub001/internal/audit/domain"
	"github.com/bldragon101/worklog-sub001/internal/config"
	"github.com/bldragon101/worklog-sub001/internal/deduction"
	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	"github.com/bldragon101/worklog-sub001/internal/driver"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bldragon101/worklog-sub001/internal/job"
	jobdomain "github.com/bldragon101/worklog-sub001/internal/job/domain"
	"github.com/bldragon101/worklog-sub001/internal/observability"
	obsmiddleware "github.com/bldragon101/worklog-sub001/internal/observability/logger"
	obsmetrics "github.com/bldragon101/worklog-sub001/internal/observability/metrics"
	obstracing "github.com/bldragon101/worklog-sub001/internal/observability/tracing"
	"github.com/bldragon101/worklog-sub001/internal/rcti"
	rctidomain "github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

var Module = fx.Module("http.server",
	audit.Module,
	driver.Module,
	job.Module,
	deduction.Module,
	rcti.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
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
	engine       *gin.Engine
	cfg          config.Config
	driverSvc    driverdomain.Service
	jobSvc       jobdomain.Service
	rctiSvc      rctidomain.Service
	deductionSvc deductiondomain.Service
	auditSvc     auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DriverSvc    driverdomain.Service
	JobSvc       jobdomain.Service
	RctiSvc      rctidomain.Service
	DeductionSvc deductiondomain.Service
	AuditSvc     auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		driverSvc:    p.DriverSvc,
		jobSvc:       p.JobSvc,
		rctiSvc:      p.RctiSvc,
		deductionSvc: p.DeductionSvc,
		auditSvc:     p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/drivers", s.CreateDriver)
	api.GET("/drivers", s.ListDrivers)
	api.GET("/drivers/:id", s.GetDriverByID)

	api.POST("/jobs", s.CreateJob)
	api.GET("/jobs", s.ListJobs)

	api.POST("/deductions", s.CreateDeduction)
	api.GET("/deductions", s.ListDeductions)
	api.GET("/deductions/:id", s.GetDeductionByID)

	api.POST("/rctis", s.CreateRcti)
	api.GET("/rctis", s.ListRctis)
	api.GET("/rctis/:id", s.GetRctiByID)
	api.POST("/rctis/:id/lines/jobs", s.AddRctiJobLines)
	api.POST("/rctis/:id/lines", s.AddRctiManualLine)
	api.DELETE("/rctis/:id/lines/:lineId", s.RemoveRctiLine)
	api.POST("/rctis/:id/finalize", s.FinalizeRcti)
	api.POST("/rctis/:id/pay", s.MarkRctiPaid)
	api.POST("/rctis/:id/revert", s.RevertRctiToDraft)

	api.GET("/audit-logs", s.ListAuditLogs)
}

// actor resolves who performed the request for the audit trail. There is no
// auth layer in front of this service yet, callers identify themselves via
// header.
func actor(c *gin.Context) string {
	if v := c.GetHeader("X-Actor"); v != "" {
		return v
	}
	return "system"
}
