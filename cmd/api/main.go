package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/config"
	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/database"
	"github.com/beatvault/beatvault-orders/internal/infra/http/handlers"
	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/paypal"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/stripe"
	"github.com/beatvault/beatvault-orders/internal/infra/lock"
	"github.com/beatvault/beatvault-orders/internal/infra/mail"
	"github.com/beatvault/beatvault-orders/internal/infra/queue"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitUser, cfg.RabbitPass, cfg.RabbitHost, cfg.RabbitPort)
	if err != nil {
		logger.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// Redis is optional: without it the label path leans on the durable lead
	// checks alone.
	var redisClient *redis.Client
	var purchaseLock *lock.RedisMutex
	if cfg.RedisAddr != "" {
		redisClient, err = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPass)
		if err != nil {
			logger.Warn("redis unavailable, label locking disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			purchaseLock = lock.NewRedisMutex(redisClient)
		}
	}

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	ledgerRepo := database.NewWebhookEventRepository(db)
	emailJobRepo := database.NewEmailJobRepository(db)
	orderEventRepo := database.NewOrderEventRepository(db)

	// 2. Catalog, gateways and adapters
	catalog := entity.NewCatalog(entity.DefaultProducts(), cfg.PriceOverrides)

	stripeClient := stripe.NewClient(cfg.StripeAPIKey, "", cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	paypalClient := paypal.NewClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalBaseURL, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	providers := usecase.NewProviderRegistry(stripe.ProviderName, stripeClient, paypalClient)

	shippoClient := shippo.NewClient(cfg.ShippoAPIKey, "", shippo.AddressInput{
		Name:    cfg.ShipFromName,
		Street1: cfg.ShipFromStreet1,
		City:    cfg.ShipFromCity,
		State:   cfg.ShipFromState,
		Zip:     cfg.ShipFromZip,
		Country: cfg.ShipFromCountry,
	})

	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	mailSender := mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	// 3. Use cases
	emailQueue := usecase.NewEmailQueue(emailJobRepo, producer, logger)
	dispatchUC := usecase.NewDispatchEmailsUseCase(emailJobRepo, mailSender, logger)
	labelUC := usecase.NewIssueLabelUseCase(leadRepo, shippoClient, purchaseLock, emailQueue, logger)
	paymentsUC := usecase.NewProcessPaymentUseCase(leadRepo, orderEventRepo, catalog, labelUC, emailQueue, logger)
	createCheckoutUC := usecase.NewCreateCheckoutUseCase(leadRepo, catalog, providers, emailQueue, logger)
	verifyCheckoutUC := usecase.NewVerifyCheckoutUseCase(leadRepo, providers, paymentsUC, logger)
	shippingUC := usecase.NewUpdateShippingUseCase(leadRepo, emailQueue, logger)
	abandonedUC := usecase.NewNotifyAbandonedCartsUseCase(leadRepo, emailQueue, logger)

	// 4. Worker draining the email queue on broker nudges
	worker := queue.NewWorker(rabbitMQ.Ch, dispatchUC, cfg.DispatchLimit, logger)
	go worker.Start(queue.QueueName)

	// 5. Handlers
	checkoutHandler := handlers.NewCheckoutHandler(createCheckoutUC, verifyCheckoutUC)
	stripeWebhook := handlers.NewStripeWebhookHandler(ledgerRepo, paymentsUC, cfg.StripeWebhookSecret, logger)
	paypalWebhook := handlers.NewPayPalWebhookHandler(ledgerRepo, paymentsUC, paypalClient, cfg.PayPalWebhookID, cfg.PayPalWebhookSecret, logger)
	shippoWebhook := handlers.NewShippoWebhookHandler(ledgerRepo, shippingUC, cfg.ShippoWebhookSecret, cfg.ShippoWebhookToken, logger)
	dispatchHandler := handlers.NewEmailDispatchHandler(dispatchUC, cfg.WorkerToken, cfg.DispatchLimit, logger)
	abandonedHandler := handlers.NewAbandonedCartHandler(abandonedUC, cfg.WorkerToken, logger)
	leadHandler := handlers.NewLeadHandler(leadRepo, logger)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, redisClient, &cfg)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Worker-Token"},
	}))
	r.Use(middleware.Metrics)

	r.Post("/checkout", checkoutHandler.Handle)
	r.Post("/webhooks/stripe", stripeWebhook.Handle)
	r.Post("/webhooks/paypal", paypalWebhook.Handle)
	r.Post("/webhooks/shippo", shippoWebhook.Handle)
	r.Post("/jobs/email-dispatch", dispatchHandler.Handle)
	r.Post("/jobs/abandoned-carts", abandonedHandler.Handle)
	r.Get("/leads/{id}", leadHandler.Get)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	logger.Info("beatvault orders api listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
