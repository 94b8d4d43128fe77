package di

import (
	"context"
	"fmt"
	"time"

	"FinFolio/internal/domain/repository"
	"FinFolio/internal/domain/service"
	internalrepo "FinFolio/internal/repository"
	"FinFolio/internal/service/cache"
	"FinFolio/internal/service/finnhub"
	"FinFolio/internal/service/tavily"
	"FinFolio/internal/service/yahoo"
	"FinFolio/internal/services/advisor"
	"FinFolio/internal/services/analytics"
	"FinFolio/internal/services/report"
	"FinFolio/internal/usecase"
	pkgch "FinFolio/pkg/clickhouse"
	"FinFolio/pkg/config"
	pkgkafka "FinFolio/pkg/kafka"
	applogger "FinFolio/pkg/logger"
	"FinFolio/pkg/metrics"
	"FinFolio/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const startupTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "finfolio")), nil
}

// ProvideRegistry creates the Prometheus registry shared by all collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache returns Redis when enabled and reachable, otherwise an
// in-process TTL cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(), func() {}, nil
	}

	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		l.Warn("redis unavailable, using in-process cache",
			applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		return cache.NewTTLCache(), func() {}, nil
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

func needsClickHouse(cfg *config.Config) bool {
	return cfg.MarketData.Source == "clickhouse" || cfg.ClickHouse.Archive
}

// ProvideClickHouseClient connects only when ClickHouse is the price source
// or the archive is enabled. Otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !needsClickHouse(cfg) {
		return nil, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecution),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	l.Info("clickhouse connected",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvidePriceStore creates the daily close table on first use. Nil without a client.
func ProvidePriceStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) (*internalrepo.ClickHousePriceStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHousePriceStore(client.DB(), cfg.ClickHouse.Table, l)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, store.Schema()...); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePriceSource layers the configured source: Yahoo or ClickHouse, then
// the ClickHouse archive, then the cache.
func ProvidePriceSource(
	cfg *config.Config,
	store *internalrepo.ClickHousePriceStore,
	c cache.BytesCache,
	l *applogger.Logger,
) repository.PriceSource {
	var src repository.PriceSource
	switch {
	case cfg.MarketData.Source == "clickhouse" && store != nil:
		src = store
	default:
		src = yahoo.New(cfg.MarketData.BaseURL, cfg.MarketData.Timeout, cfg.MarketData.RequestDelay, l)
		if cfg.ClickHouse.Archive && store != nil {
			src = internalrepo.NewArchivingPriceSource(src, store, l)
		}
	}
	if cfg.MarketData.Cache.Enabled {
		src = internalrepo.NewCachedPriceSource(src, c, cfg.MarketData.Cache.TTL, l)
	}
	l.Info("price source ready",
		applogger.String("source", cfg.MarketData.Source),
		applogger.Bool("archive", cfg.ClickHouse.Archive),
		applogger.Bool("cache", cfg.MarketData.Cache.Enabled))
	return src
}

// ProvideBetaSource returns nil when no Finnhub key is configured; betas are
// then always estimated from prices.
func ProvideBetaSource(cfg *config.Config, c cache.BytesCache, l *applogger.Logger) repository.BetaSource {
	if cfg.Finnhub.APIKey == "" {
		l.Info("finnhub key not set, betas will be estimated from prices")
		return nil
	}
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, cfg.Finnhub.Timeout, c, l)
}

// ProvideNewsSource returns nil when no Tavily key is configured.
func ProvideNewsSource(cfg *config.Config, l *applogger.Logger) repository.NewsSource {
	if cfg.News.APIKey == "" {
		l.Info("news key not set, news context disabled")
		return nil
	}
	return tavily.New(cfg.News.APIKey, cfg.News.BaseURL, cfg.News.MaxResults, cfg.News.Timeout, l)
}

// ProvideAdvisor creates the LLM advisor.
func ProvideAdvisor(cfg *config.Config, l *applogger.Logger) service.Advisor {
	if cfg.LLM.APIKey == "" {
		l.Warn("llm api key not set, requests may be rejected")
	}
	return advisor.NewOpenAIAdvisor(cfg, l)
}

// ProvideEngine creates the analytics engine.
func ProvideEngine(cfg *config.Config, beta repository.BetaSource, l *applogger.Logger) *analytics.Engine {
	return analytics.NewEngine(
		analytics.WithRiskFreeRate(cfg.Pipeline.RiskFreeRate),
		analytics.WithExpectedMarketReturn(cfg.Pipeline.ExpectedMarketReturn),
		analytics.WithBenchmark(cfg.Pipeline.Benchmark),
		analytics.WithMinBetaPeriods(cfg.Pipeline.MinPeriodsForBeta),
		analytics.WithBetaSource(beta),
		analytics.WithLogger(l),
	)
}

// ProvideReportBuilder creates the Markdown report builder.
func ProvideReportBuilder(cfg *config.Config) *report.Builder {
	return report.NewBuilder(cfg.Pipeline.RiskFreeRate, cfg.Pipeline.ExpectedMarketReturn)
}

// ProvideStages creates the stage handlers.
func ProvideStages(
	cfg *config.Config,
	adv service.Advisor,
	prices repository.PriceSource,
	engine *analytics.Engine,
	reports *report.Builder,
	news repository.NewsSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Stages {
	return usecase.NewStages(adv, prices, engine, reports,
		usecase.WithNewsSource(news),
		usecase.WithStageBenchmark(cfg.Pipeline.Benchmark),
		usecase.WithDefaultYears(cfg.Pipeline.DefaultYears),
		usecase.WithStageMetrics(m),
		usecase.WithStageLogger(l),
	)
}

// ProvidePipeline creates the stage machine.
func ProvidePipeline(cfg *config.Config, stages *usecase.Stages, m repository.Metrics, l *applogger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(stages.Handlers(),
		usecase.WithMaxTransitions(cfg.Pipeline.MaxTransitions),
		usecase.WithPipelineMetrics(m),
		usecase.WithPipelineLogger(l),
	)
}

// ProvideArtifactStore creates the file artifact store.
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) repository.ArtifactStore {
	return internalrepo.NewFileArtifactStore(cfg.Pipeline.OutputDir, l)
}

// ProvideRunPublisher returns the Kafka publisher when enabled.
func ProvideRunPublisher(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (repository.RunPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopRunPublisher{}, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaRunPublisher(producer, cfg.Kafka.Topic)
	l.Info("kafka run publisher ready",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic))

	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvidePortfolioService creates the run service.
func ProvidePortfolioService(
	p *usecase.Pipeline,
	artifacts repository.ArtifactStore,
	pub repository.RunPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PortfolioService {
	return usecase.NewPortfolioService(p, artifacts, pub, m, l)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	svc *usecase.PortfolioService,
	reg *prometheus.Registry,
) *server.App {
	return server.New(cfg, l, svc, reg)
}
