package setup

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/LavaJover/shvark-aggregator-service/internal/config"
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	publisher "github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/partner"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/repository"
	redislock "github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/redis"
)

type Dependencies struct {
	Config       *config.AggregatorConfig
	Logger       *slog.Logger
	DB           *gorm.DB
	Registry     *prometheus.Registry
	Metrics      *metrics.AggregatorMetrics
	Publisher    domain.DealEventPublisher
	Locker       domain.JobLocker
	Client       domain.AggregatorClient
	Repositories *Repositories

	closers []io.Closer
}

type Repositories struct {
	AggregatorRepo         domain.AggregatorRepository
	AggregatorMerchantRepo domain.AggregatorMerchantRepository
	MerchantMethodRepo     domain.MerchantMethodRepository
	DealRepo               domain.DealRepository
	IntegrationLogRepo     domain.IntegrationLogRepository
}

// InitializeDependencies opens storage and brokers described by cfg.
// An empty DSN selects in-memory repositories.
func InitializeDependencies(cfg *config.AggregatorConfig, logger *slog.Logger) (*Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.NewAggregatorMetrics(registry),
		Client:   partner.NewHTTPAggregatorClient(cfg.Routing.PartnerTimeout),
	}

	if cfg.AggregatorDB.Dsn == "" {
		logger.Warn("aggregator_db.dsn is empty, using in-memory storage")
		deps.Repositories = memoryRepositories()
	} else {
		db, err := postgres.Open(cfg.AggregatorDB.Dsn)
		if err != nil {
			return nil, err
		}
		if err := migrate.RunMigrations(db, cfg.AggregatorDB.MigrationsPath); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		deps.DB = db
		deps.Repositories = postgresRepositories(db)
	}

	if cfg.KafkaService.Enabled {
		kafkaPublisher := publisher.NewDefaultKafkaPublisher(strings.Split(cfg.KafkaAddr(), ","), cfg.KafkaService.Topic)
		deps.Publisher = kafkaPublisher
		deps.closers = append(deps.closers, kafkaPublisher)
	} else {
		deps.Publisher = memory.NewEventPublisher()
	}

	if cfg.RedisService.Enabled {
		locker, err := redislock.NewLocker(cfg.RedisService.URL, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("redis locker: %w", err)
		}
		deps.Locker = locker
		deps.closers = append(deps.closers, locker)
	} else {
		deps.Locker = memory.NewLocker()
	}

	return deps, nil
}

func memoryRepositories() *Repositories {
	return &Repositories{
		AggregatorRepo:         memory.NewAggregatorRepository(),
		AggregatorMerchantRepo: memory.NewAggregatorMerchantRepository(),
		MerchantMethodRepo:     memory.NewMerchantMethodRepository(),
		DealRepo:               memory.NewDealRepository(),
		IntegrationLogRepo:     memory.NewIntegrationLogRepository(),
	}
}

func postgresRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		AggregatorRepo:         repository.NewDefaultAggregatorRepository(db),
		AggregatorMerchantRepo: repository.NewDefaultAggregatorMerchantRepository(db),
		MerchantMethodRepo:     repository.NewDefaultMerchantMethodRepository(db),
		DealRepo:               repository.NewDefaultDealRepository(db),
		IntegrationLogRepo:     repository.NewDefaultIntegrationLogRepository(db),
	}
}

func (d *Dependencies) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.Logger.Error("failed to close dependency", "error", err)
		}
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
