package main

import (
	"context"
	"time"

	"ticketing/api/routes"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/memstore"
	"ticketing/internal/notifications"
	"ticketing/internal/payments"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/database"
	"ticketing/internal/venues"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"
)

// repositories is the storage backend selected by STORAGE_DRIVER
type repositories struct {
	events   events.Repository
	venues   venues.Repository
	pricing  pricing.Repository
	seats    seats.Repository
	holds    holds.Repository
	payments payments.Repository
}

func newRepositories(cfg *config.Config, db *database.DB) repositories {
	if cfg.UsesMemoryStore() {
		store := memstore.New()
		return repositories{
			events:   store.Events(),
			venues:   store.Venues(),
			pricing:  store.Pricing(),
			seats:    store.Seats(),
			holds:    store.Holds(),
			payments: store.Payments(),
		}
	}

	pg := db.PostgreSQL
	return repositories{
		events:   events.NewRepository(pg),
		venues:   venues.NewRepository(pg),
		pricing:  pricing.NewRepository(pg),
		seats:    seats.NewRepository(pg),
		holds:    holds.NewRepository(pg),
		payments: payments.NewRepository(pg),
	}
}

func newCacheService(cfg *config.Config, db *database.DB) cache.Service {
	if !cfg.CacheEnabled || db.Redis == nil {
		return cache.NewNoopService()
	}
	return cache.NewService(db.Redis)
}

func newPublisher(cfg *config.Config, log *logger.Logger) notifications.Publisher {
	if !cfg.Kafka.Enabled {
		return notifications.NewLogPublisher(log)
	}

	producerConfig := notifications.DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.ClientID = cfg.Kafka.ClientID
	producerConfig.Topic = cfg.Kafka.HoldsTopic

	publisher, err := notifications.NewKafkaPublisher(producerConfig, log)
	if err != nil {
		log.Error("Failed to create Kafka hold event producer, falling back to log publisher", "error", err)
		return notifications.NewLogPublisher(log)
	}
	return publisher
}

func newServices(cfg *config.Config, db *database.DB, repos repositories, publisher notifications.Publisher, log *logger.Logger) *routes.Services {
	cacheService := newCacheService(cfg, db)

	pricingService := pricing.NewService(repos.pricing, repos.events, repos.venues, cacheService)
	seatService := seats.NewService(repos.seats, repos.events, repos.venues, pricingService, cacheService)
	holdService := holds.NewService(repos.holds, repos.events, pricingService,
		holds.WithHoldTTL(cfg.Reservation.HoldTTL),
		holds.WithMaxSeats(cfg.Reservation.MaxSeatsPerHold),
		holds.WithPublisher(publisher),
		holds.WithVerifier(payments.NewVerifier(repos.payments)),
		holds.WithInvalidator(seatService),
		holds.WithLogger(log),
	)

	services := &routes.Services{
		Pricing: pricingService,
		Seats:   seatService,
		Holds:   holdService,
	}

	if cfg.Reservation.SweeperEnabled {
		var locker holds.Locker
		if db.Redis != nil {
			lock := holds.NewRedisLock(db.Redis, constants.LOCK_KEY_SWEEPER, cfg.Reservation.SweepLockTTL)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := lock.PreloadScripts(ctx); err != nil {
				log.Warn("Failed to preload sweeper lock script", "error", err)
			}
			cancel()
			locker = lock
		}
		services.Sweeper = holds.NewSweeper(repos.holds, holdService, locker, &holds.SweeperConfig{
			Interval:  cfg.Reservation.SweepInterval,
			BatchSize: cfg.Reservation.SweepBatchSize,
		})
	}

	return services
}

func newPaymentListener(cfg *config.Config, repos repositories, holdService holds.Service) (*payments.Listener, error) {
	consumerConfig := payments.DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Kafka.Brokers
	consumerConfig.ClientID = cfg.Kafka.ClientID
	consumerConfig.GroupID = cfg.Kafka.ConsumerGroup
	consumerConfig.Topics = []string{cfg.Kafka.PaymentsTopic}
	consumerConfig.Workers = cfg.Kafka.ConsumerWorkers

	handler := payments.NewHandler(repos.payments, holdService, consumerConfig.MaxRetries, consumerConfig.RetryBackoffDuration)
	return payments.NewListener(consumerConfig, handler)
}
