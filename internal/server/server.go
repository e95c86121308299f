package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/medisys/clinicore/internal/audit"
	auditdomain "github.com/medisys/clinicore/internal/audit/domain"
	"github.com/medisys/clinicore/internal/billing"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	"github.com/medisys/clinicore/internal/catalog"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/identity"
	"github.com/medisys/clinicore/internal/laborder"
	laborderdomain "github.com/medisys/clinicore/internal/laborder/domain"
	"github.com/medisys/clinicore/internal/notification"
	notifydomain "github.com/medisys/clinicore/internal/notification/domain"
	"github.com/medisys/clinicore/internal/observability"
	obslogger "github.com/medisys/clinicore/internal/observability/logger"
	obstracing "github.com/medisys/clinicore/internal/observability/tracing"
	"github.com/medisys/clinicore/internal/providers/pdf"
	"github.com/medisys/clinicore/internal/report"
	reportdomain "github.com/medisys/clinicore/internal/report/domain"
	"github.com/medisys/clinicore/internal/user"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	user.Module,
	audit.Module,
	catalog.Module,
	notification.Module,
	billing.Module,
	report.Module,
	laborder.Module,
	pdf.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	identitySvc identity.Service
	userSvc     userdomain.Service
	auditSvc    auditdomain.Service
	catalogSvc  catalogdomain.Service
	orderSvc    laborderdomain.Service
	billingSvc  billingdomain.Service
	reportSvc   reportdomain.Service
	notifySvc   notifydomain.Service
	pdfProvider pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	IdentitySvc identity.Service
	UserSvc     userdomain.Service
	AuditSvc    auditdomain.Service
	CatalogSvc  catalogdomain.Service
	OrderSvc    laborderdomain.Service
	BillingSvc  billingdomain.Service
	ReportSvc   reportdomain.Service
	NotifySvc   notifydomain.Service
	PDFProvider pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		identitySvc: p.IdentitySvc,
		userSvc:     p.UserSvc,
		auditSvc:    p.AuditSvc,
		catalogSvc:  p.CatalogSvc,
		orderSvc:    p.OrderSvc,
		billingSvc:  p.BillingSvc,
		reportSvc:   p.ReportSvc,
		notifySvc:   p.NotifySvc,
		pdfProvider: p.PDFProvider,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.POST("/users", s.RequireCapability(identity.ObjectUser, identity.ActionCreate), s.CreateUser)
	api.GET("/users", s.RequireCapability(identity.ObjectUser, identity.ActionView), s.ListUsers)

	api.POST("/catalog-tests", s.RequireCapability(identity.ObjectCatalogTest, identity.ActionCreate), s.CreateCatalogTest)
	api.GET("/catalog-tests", s.RequireCapability(identity.ObjectCatalogTest, identity.ActionView), s.ListCatalogTests)
	api.GET("/catalog-tests/:id", s.RequireCapability(identity.ObjectCatalogTest, identity.ActionView), s.GetCatalogTest)
	api.PATCH("/catalog-tests/:id", s.RequireCapability(identity.ObjectCatalogTest, identity.ActionUpdate), s.UpdateCatalogTest)
	api.DELETE("/catalog-tests/:id", s.RequireCapability(identity.ObjectCatalogTest, identity.ActionDelete), s.DeactivateCatalogTest)

	api.POST("/lab-orders", s.RequireCapability(identity.ObjectLabOrder, identity.ActionCreate), s.CreateLabOrder)
	api.GET("/lab-orders", s.RequireCapability(identity.ObjectLabOrder, identity.ActionView), s.ListLabOrders)
	api.GET("/lab-orders/:id", s.RequireCapability(identity.ObjectLabOrder, identity.ActionView), s.GetLabOrder)
	api.GET("/lab-orders/:id/report", s.RequireCapability(identity.ObjectReport, identity.ActionView), s.GetLabOrderReport)
	api.POST("/lab-orders/:id/payment", s.RequireCapability(identity.ObjectLabOrder, identity.ActionLabOrderPay), s.RecordLabOrderPayment)
	api.PATCH("/lab-orders/:id/status", s.RequireCapability(identity.ObjectLabOrder, identity.ActionLabOrderProcess), s.UpdateLabOrderStatus)
	api.POST("/lab-orders/:id/results", s.RequireCapability(identity.ObjectLabOrder, identity.ActionLabOrderResults), s.SubmitLabOrderResults)
	api.DELETE("/lab-orders/:id", s.RequireCapability(identity.ObjectLabOrder, identity.ActionLabOrderCancel), s.CancelLabOrder)

	api.POST("/billings", s.RequireCapability(identity.ObjectBilling, identity.ActionCreate), s.CreateBilling)
	api.GET("/billings", s.RequireCapability(identity.ObjectBilling, identity.ActionView), s.ListBillings)
	api.GET("/billings/:id", s.RequireCapability(identity.ObjectBilling, identity.ActionView), s.GetBilling)
	api.PATCH("/billings/:id", s.RequireCapability(identity.ObjectBilling, identity.ActionUpdate), s.UpdateBilling)
	api.GET("/billings/:id/invoice.pdf", s.RequireCapability(identity.ObjectBilling, identity.ActionView), s.BillingInvoicePDF)

	api.GET("/payments", s.RequireCapability(identity.ObjectPayment, identity.ActionView), s.ListPayments)
	api.GET("/payments/:id/receipt.pdf", s.RequireCapability(identity.ObjectPayment, identity.ActionView), s.PaymentReceiptPDF)

	api.GET("/audit-logs", s.RequireCapability(identity.ObjectAuditLog, identity.ActionView), s.ListAuditLogs)

	api.GET("/notifications", s.RequireCapability(identity.ObjectNotification, identity.ActionView), s.ListNotifications)
	api.POST("/notifications/:id/read", s.RequireCapability(identity.ObjectNotification, identity.ActionView), s.MarkNotificationRead)
}
