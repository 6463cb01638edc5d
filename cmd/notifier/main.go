// Command notifier consumes order.paid events from the configured broker
// and emails the printer for each paid order.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker/natsstan"
	"tchatsouvenir/bookshop/internal/broker/rabbitmq"
	"tchatsouvenir/bookshop/internal/config"
	"tchatsouvenir/bookshop/internal/logging"
	"tchatsouvenir/bookshop/internal/repository"
	"tchatsouvenir/bookshop/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	db := repository.NewDB(dbPool)
	notifier := service.NewNotificationService(
		db,
		repository.NewOrderRepository(db),
		repository.NewNotificationRepository(db),
		service.LogMailer{Logger: logger},
		cfg.PrinterEmail,
		logger,
	)

	logger.Info("Notifier started", zap.String("broker", cfg.Broker))

	switch cfg.Broker {
	case "amqp":
		pool, err := rabbitmq.NewChannelPool(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, 1, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer pool.Close()

		err = rabbitmq.Consume(ctx, pool.Conn(), cfg.RabbitMQ.Queue, cfg.RabbitMQ.ChannelPoolSize, notifier.HandleEvent, logger)
		if err != nil {
			logger.Error("Consumer failed", zap.Error(err))
		}
	case "stan":
		sub := &natsstan.Subscriber{
			Config: natsstan.Config{
				ClusterID: cfg.STAN.ClusterID,
				ClientID:  cfg.STAN.ClientID,
				URL:       cfg.STAN.NatsURL,
				Subject:   cfg.STAN.Subject,
			},
			Logger: logger,
		}
		if err := sub.Subscribe(ctx, notifier.HandleEvent); err != nil {
			logger.Error("Subscriber failed", zap.Error(err))
		}
	default:
		logger.Warn("No broker configured, printer notifications are handled by the API process")
		return
	}

	logger.Info("Notifier exiting")
}
