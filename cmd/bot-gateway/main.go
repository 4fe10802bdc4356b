package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/feeline-api/api/swagger"
	"github.com/noah-isme/feeline-api/internal/handler"
	"github.com/noah-isme/feeline-api/internal/middleware"
	"github.com/noah-isme/feeline-api/internal/repository"
	"github.com/noah-isme/feeline-api/internal/service"
	"github.com/noah-isme/feeline-api/pkg/cache"
	"github.com/noah-isme/feeline-api/pkg/config"
	"github.com/noah-isme/feeline-api/pkg/database"
	"github.com/noah-isme/feeline-api/pkg/export"
	"github.com/noah-isme/feeline-api/pkg/llm"
	"github.com/noah-isme/feeline-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/feeline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/feeline-api/pkg/middleware/requestid"
	"github.com/noah-isme/feeline-api/pkg/razorpay"
	"github.com/noah-isme/feeline-api/pkg/whatsapp"
)

// @title Feeline API
// @version 0.1.0
// @description WhatsApp-driven school fee management gateway
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dedup store degrades to treating every event as new, so a
		// missing Redis keeps the gateway up with weaker replay protection.
		logr.Sugar().Warnw("redis unavailable, payment dedup degraded", "error", err)
		redisClient = nil
	}

	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	logRepo := repository.NewLogRepository(db)
	dedupRepo := repository.NewDedupRepository(redisClient, logr)

	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout)
	waClient := whatsapp.NewClient(cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Timeout)
	rzpClient := razorpay.NewClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Timeout)

	metrics := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Expiration)

	confirmations := service.NewConfirmationService(studentRepo, feeRepo, cfg.Confirmations.TTL, logr)
	classifier := service.NewClassifierService(llmClient, confirmations, cfg.LLM.ClassifierModel, logr)
	classifier.SetMetrics(metrics)
	parser := service.NewParserService(llmClient, cfg.LLM.ParserModel, logr)
	parser.SetMetrics(metrics)

	ledger := service.NewLedgerService(studentRepo, feeRepo, installmentRepo, logRepo, logr)
	ledger.SetMetrics(metrics)

	reader := service.NewReadService(llmClient, cfg.LLM.ReaderModel, studentRepo, feeRepo, installmentRepo, logr)
	reader.SetMetrics(metrics)

	reminders := service.NewReminderService(studentRepo, feeRepo, waClient, logRepo,
		cfg.Reminders.WorkerConcurrency, cfg.WhatsApp.DefaultCountryCode, cfg.Receipts.SchoolName, logr)
	reminders.SetMetrics(metrics)

	ctx := context.Background()
	var receipts *service.ReceiptService
	if cfg.Receipts.Enabled {
		receipts = service.NewReceiptService(studentRepo, feeRepo, installmentRepo,
			export.NewReceiptExporter(), waClient, cfg.Receipts.SchoolName, logr)
		receipts.Start(ctx)
		defer receipts.Stop()
	}

	payments := service.NewPaymentService(rzpClient, ledger, dedupRepo, studentRepo, feeRepo,
		waClient, logRepo, receipts, cfg.Razorpay.WebhookSecret, cfg.Razorpay.Currency, logr)
	payments.SetMetrics(metrics)

	messages := service.NewMessageService(classifier, parser, confirmations, ledger, reader,
		reminders, waClient, logRepo, receipts, cfg.Reminders.QueueBuffer, logr)
	messages.SetMetrics(metrics)
	messages.Start(ctx)
	defer messages.Stop()

	admin := service.NewAdminService(studentRepo, feeRepo, installmentRepo, logRepo, export.NewCSVExporter(), logr)

	webhookHandler := handler.NewWebhookHandler(messages, cfg.WhatsApp.VerifyToken, logr)
	paymentHandler := handler.NewPaymentHandler(payments, logr)
	adminHandler := handler.NewAdminHandler(admin)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)

	r.POST("/payments/orders/:studentId", paymentHandler.CreateOrder)
	r.POST("/payments/webhook", paymentHandler.Webhook)

	secured := r.Group("", middleware.JWT(authSvc))
	{
		secured.GET("/students", adminHandler.ListStudents)
		secured.GET("/students/:id/fees", adminHandler.FeeStatus)
		secured.GET("/students/:id/installments", adminHandler.Installments)
		secured.GET("/logs", adminHandler.ListLogs)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
