package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/auth"
	"tchatsouvenir/bookshop/internal/bookgen"
	"tchatsouvenir/bookshop/internal/broker"
	"tchatsouvenir/bookshop/internal/broker/natsstan"
	"tchatsouvenir/bookshop/internal/broker/rabbitmq"
	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/config"
	"tchatsouvenir/bookshop/internal/handler"
	"tchatsouvenir/bookshop/internal/logging"
	"tchatsouvenir/bookshop/internal/repository"
	"tchatsouvenir/bookshop/internal/service"
	"tchatsouvenir/bookshop/internal/service/gateway"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	// 2. Setup Database
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Connected to database")

	db := repository.NewDB(dbPool)
	users := repository.NewUserRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	payments := repository.NewPaymentRepository(db)
	books := repository.NewBookRepository(db)
	printers := repository.NewPrinterRepository(db)
	printerOrders := repository.NewPrinterOrderRepository(db)
	notifications := repository.NewNotificationRepository(db)

	// 3. Setup Logic
	mailer := service.LogMailer{Logger: logger}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	notifier := service.NewNotificationService(db, orders, notifications, mailer, cfg.PrinterEmail, logger)

	// Logic - Printer notifications
	publisher, closePublisher, err := newPublisher(cfg, notifier, logger)
	if err != nil {
		logger.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer closePublisher()

	// Logic - Payment gateway
	var gw gateway.Gateway = &gateway.Simulated{PublicURL: cfg.PublicURL}
	provider := "simulated"
	if cfg.Payment.APIURL != "" {
		gw = gateway.NewClient(gateway.Config{
			APIURL:   cfg.Payment.APIURL,
			ClientID: cfg.Payment.ClientID,
			APIKey:   cfg.Payment.APIKey,
		})
		provider = "gateway"
	}

	svc := handler.Services{
		Auth:   service.NewAuthService(users, issuer, mailer, logger, cfg.PublicURL),
		Cart:   service.NewCartService(db, carts, catalog, catalog.Currency),
		Orders: service.NewOrderService(db, orders, carts, notifications, catalog.Currency),
		Payments: service.NewPaymentService(db, payments, orders, books, notifications, gw, publisher, service.PaymentConfig{
			Provider:     provider,
			CallbackURL:  strings.TrimSuffix(cfg.APIURL, "/") + "/v1/payments/callback",
			ReturnURL:    strings.TrimSuffix(cfg.PublicURL, "/") + "/payment/success",
			PrinterEmail: cfg.PrinterEmail,
		}, logger),
		Books:         service.NewBookService(db, books, printers, printerOrders, catalog),
		Printers:      service.NewPrinterService(printers, printerOrders),
		Notifications: notifier,
		Stats:         service.NewStatsService(orders, payments, books, printers),
	}

	// Logic - Book generation
	store := bookgen.NewStore(cfg.StoragePath, cfg.MediaPath, cfg.APIURL)
	runner := bookgen.NewRunner(store, logger)
	defer runner.Close()

	h := handler.NewHandler(svc, handler.Options{
		Logger:        logger,
		Issuer:        issuer,
		Runner:        runner,
		Generator:     bookgen.NewGenerator(store, chatexport.DefaultMaxArchiveSize),
		Store:         store,
		MaxUploadSize: cfg.MaxUploadSize,
		MaxArchive:    chatexport.DefaultMaxArchiveSize,
	})

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run Server with Graceful Shutdown
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("broker", cfg.Broker))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// newPublisher returns the printer notification publisher for cfg.Broker.
// Without a broker the event is handled in process.
func newPublisher(cfg *config.Config, notifier *service.NotificationService, logger *zap.Logger) (broker.Publisher, func(), error) {
	switch cfg.Broker {
	case "amqp":
		pool, err := rabbitmq.NewChannelPool(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, cfg.RabbitMQ.ChannelPoolSize, logger)
		if err != nil {
			return nil, nil, err
		}
		return rabbitmq.NewPublisher(pool, cfg.RabbitMQ.Queue, logger), pool.Close, nil
	case "stan":
		pub, err := natsstan.NewPublisher(natsstan.Config{
			ClusterID: cfg.STAN.ClusterID,
			ClientID:  cfg.STAN.ClientID,
			URL:       cfg.STAN.NatsURL,
			Subject:   cfg.STAN.Subject,
		})
		if err != nil {
			return nil, nil, err
		}
		return pub, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("Failed to close stan connection", zap.Error(err))
			}
		}, nil
	default:
		return &broker.InProcess{Handler: notifier.HandleEvent}, func() {}, nil
	}
}
