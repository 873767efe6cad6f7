package di

import (
	"context"
	"fmt"
	"time"

	"ORBLab/internal/domain/repository"
	"ORBLab/internal/handler/api"
	"ORBLab/internal/registry"
	internalrepo "ORBLab/internal/repository"
	"ORBLab/internal/service/ratelimit"
	"ORBLab/internal/usecase"
	"ORBLab/pkg/cache"
	pkgch "ORBLab/pkg/clickhouse"
	"ORBLab/pkg/config"
	pkgkafka "ORBLab/pkg/kafka"
	applogger "ORBLab/pkg/logger"
	"ORBLab/pkg/metrics"
	"ORBLab/pkg/server"
)

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects when a host is configured; it serves both
// the bar store and the clickhouse outcome backend. Returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxConnections, cfg.ClickHouse.MaxConnections/2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(client.Database())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the outcome producer for the kafka backend only.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(false),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCache returns a memory cache, layered over redis when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	l1 := cache.NewMemoryCache(
		cache.WithMemoryMaxEntries(4096),
		cache.WithMemoryDefaultTTL(cfg.Backtest.CacheTTL),
	)
	if !cfg.Redis.Enabled {
		return l1, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(l1, rc, cfg.Redis.L1TTL), nil
}

// ProvideBarStore reads bars from ClickHouse when connected, otherwise from
// the CSV directory, behind the snapshot cache.
func ProvideBarStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) (repository.BarStore, error) {
	var base repository.BarStore
	switch {
	case ch != nil:
		base = internalrepo.NewCHBarStore(ch, l)
	case cfg.Backtest.BarsCSVDir != "":
		base = internalrepo.NewCSVBarStore(cfg.Backtest.BarsCSVDir)
	default:
		return nil, fmt.Errorf("no bar source: configure clickhouse.host or backtest.bars_csv_dir")
	}
	if cfg.Backtest.CacheTTL <= 0 {
		return base, nil
	}
	return internalrepo.NewCachedBarStore(base, c, cfg.Backtest.CacheTTL, l), nil
}

func ProvideStrategyRegistry(cfg *config.Config) (repository.StrategyRegistry, error) {
	return registry.LoadStrategies(cfg.Backtest.StrategiesFile)
}

func ProvideCostRegistry(cfg *config.Config) (repository.CostRegistry, error) {
	return registry.LoadCosts(cfg.Backtest.CostsFile)
}

// ProvideOutcomeRouter selects the outcome backend from backend.type.
func ProvideOutcomeRouter(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	m repository.Metrics,
) (*usecase.OutcomeRouter, error) {
	var (
		pub   repository.OutcomeSink
		store repository.OutcomeStorage
	)
	switch cfg.Backend.Type {
	case usecase.BackendKafka:
		pub = internalrepo.NewKafkaOutcomePublisher(producer, cfg.Kafka.OutcomesTopic)
	case usecase.BackendClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("clickhouse backend without a clickhouse client")
		}
		store = internalrepo.NewCHOutcomeStorage(ch)
	default:
		store = internalrepo.NewMemoryOutcomeStorage()
	}
	return usecase.NewOutcomeRouter(pub, store, m, cfg.Backend.Type)
}

// ProvideOutcomeSink guards the router with a circuit breaker.
func ProvideOutcomeSink(router *usecase.OutcomeRouter, cfg *config.Config, l *applogger.Logger) repository.OutcomeSink {
	return internalrepo.NewBreakerSink(router, internalrepo.BreakerConfig{
		Name:                "outcomes_" + router.Backend(),
		ConsecutiveFailures: cfg.Backend.Breaker.ConsecutiveFailures,
		Timeout:             cfg.Backend.Breaker.Timeout,
	}, l)
}

func ProvideBacktestUseCase(
	cfg *config.Config,
	strategies repository.StrategyRegistry,
	costs repository.CostRegistry,
	bars repository.BarStore,
	sink repository.OutcomeSink,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.BacktestUseCase, error) {
	loc, err := cfg.Backtest.Location()
	if err != nil {
		return nil, err
	}
	return usecase.NewBacktestUseCase(strategies, costs, bars, sink, m, l, usecase.BacktestConfig{
		Workers:       cfg.Backtest.Workers,
		RangeDuration: cfg.Backtest.RangeDuration(),
		ScanHorizon:   cfg.Backtest.ScanHorizon,
		Location:      loc,
		Rule:          cfg.Backtest.Rule,
		AggMinutes:    cfg.Backtest.AggMinutes,
	}), nil
}

func ProvideBacktestHandler(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.BacktestUseCase,
	router *usecase.OutcomeRouter,
	strategies repository.StrategyRegistry,
) *api.BacktestHandler {
	var limiter *ratelimit.Limiter
	if rl := cfg.Server.RateLimit; rl.Burst > 0 {
		limiter = ratelimit.New(rl.Burst, rl.PerSecond)
	}
	return api.NewBacktestHandler(l, uc, router, strategies, router, limiter)
}

// ProvideKafkaConsumer creates the request consumer when enabled. Returns nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.RequestIDHook())
	return consumer, nil
}

func ProvideBacktestRequestHandler(cfg *config.Config, uc *usecase.BacktestUseCase, l *applogger.Logger) *usecase.BacktestRequestHandler {
	return usecase.NewBacktestRequestHandler(cfg.Kafka.RequestsTopic, uc, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.BacktestHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.BacktestRequestHandler,
	sink repository.OutcomeSink,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, handler, consumer, kh, sink, chClient, c)
}
