package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/clinicledger/internal/admission"
	admissiondomain "github.com/smallbiznis/clinicledger/internal/admission/domain"
	"github.com/smallbiznis/clinicledger/internal/audit"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/internal/cashregister"
	cashregisterdomain "github.com/smallbiznis/clinicledger/internal/cashregister/domain"
	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/smallbiznis/clinicledger/internal/events"
	"github.com/smallbiznis/clinicledger/internal/installment"
	installmentdomain "github.com/smallbiznis/clinicledger/internal/installment/domain"
	"github.com/smallbiznis/clinicledger/internal/ledger"
	"github.com/smallbiznis/clinicledger/internal/lock"
	"github.com/smallbiznis/clinicledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/clinicledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/clinicledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/clinicledger/internal/observability/tracing"
	"github.com/smallbiznis/clinicledger/internal/patient"
	"github.com/smallbiznis/clinicledger/internal/payment"
	"github.com/smallbiznis/clinicledger/internal/receivable"
	receivabledomain "github.com/smallbiznis/clinicledger/internal/receivable/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	audit.Module,
	events.Module,
	lock.Module,
	payment.Module,
	patient.Module,
	ledger.Module,
	installment.Module,
	cashregister.Module,
	receivable.Module,
	admission.Module,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine *gin.Engine
	cfg    config.Config

	cashRegisterSvc cashregisterdomain.Service
	receivableSvc   receivabledomain.Service
	installmentSvc  installmentdomain.Service
	admissionSvc    admissiondomain.Service
	auditSvc        auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	CashRegisterSvc cashregisterdomain.Service
	ReceivableSvc   receivabledomain.Service
	InstallmentSvc  installmentdomain.Service
	AdmissionSvc    admissiondomain.Service
	AuditSvc        auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		cashRegisterSvc: p.CashRegisterSvc,
		receivableSvc:   p.ReceivableSvc,
		installmentSvc:  p.InstallmentSvc,
		admissionSvc:    p.AdmissionSvc,
		auditSvc:        p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", ScopeContext())

	// -------- Cash registers --------
	api.POST("/cash-registers", s.OpenCashRegister)
	api.GET("/cash-registers/active", s.GetActiveCashRegister)
	api.POST("/cash-registers/active/close", s.CloseActiveCashRegister)
	api.POST("/cash-registers/:id/close", s.CloseCashRegister)
	api.GET("/cash-registers/:id/summary", s.GetCashRegisterSummary)

	// -------- Receipts --------
	api.POST("/receipts", s.SubmitReceipt)

	// -------- Installments --------
	api.GET("/installments/:id", s.GetInstallment)
	api.GET("/patients/:id/installments", s.ListPatientInstallments)

	// -------- Admissions --------
	api.POST("/appointments/:id/admit", s.AdmitPatient)

	// -------- Audit trail --------
	api.GET("/audit-trail", s.ListAuditTrail)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
