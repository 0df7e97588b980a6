package di

import (
	"fmt"

	"FundLens/internal/domain/repository"
	"FundLens/internal/handler/api"
	"FundLens/internal/service/edgar"
	"FundLens/internal/service/finnhub"
	"FundLens/internal/service/llm"
	"FundLens/internal/service/normalize"
	"FundLens/internal/service/tools"
	"FundLens/internal/usecase"
	"FundLens/pkg/cache"
	"FundLens/pkg/config"
	applogger "FundLens/pkg/logger"
	"FundLens/pkg/metrics"
	"FundLens/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "json"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the response cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis", "layered":
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			return cache.NewLayeredCache(c), nil
		}
		return c, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// ProvideFilingSource creates the SEC EDGAR client.
func ProvideFilingSource(cfg *config.Config, logger *applogger.Logger, c cache.Service, m repository.Metrics) repository.FilingSource {
	return edgar.New(cfg.Edgar.UserAgent, logger,
		edgar.WithBaseURL(cfg.Edgar.BaseURL),
		edgar.WithTickerMapURL(cfg.Edgar.TickerMapURL),
		edgar.WithRateLimit(cfg.Edgar.RequestsPerSecond),
		edgar.WithRetries(cfg.Edgar.MaxRetries, cfg.Edgar.BackoffBase),
		edgar.WithCache(c, cfg.Cache.TTL),
		edgar.WithTimeout(cfg.Edgar.Timeout),
		edgar.WithMetrics(m),
	)
}

// ProvideMarketSource creates the Finnhub client.
func ProvideMarketSource(cfg *config.Config, logger *applogger.Logger, c cache.Service, m repository.Metrics) repository.MarketSource {
	return finnhub.New(cfg.Finnhub.APIKey, logger,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithRateLimit(cfg.Finnhub.RequestsPerSecond),
		finnhub.WithCache(c, cfg.Cache.TTL),
		finnhub.WithTimeout(cfg.Finnhub.Timeout),
		finnhub.WithMetrics(m),
	)
}

// ProvideNormalizer creates the cross-source fact normalizer.
func ProvideNormalizer(logger *applogger.Logger) *normalize.Normalizer {
	return normalize.New(logger)
}

// ProvideToolRegistry creates the tool registry over both data sources.
func ProvideToolRegistry(filing repository.FilingSource, market repository.MarketSource, n *normalize.Normalizer, logger *applogger.Logger, m repository.Metrics) repository.ToolRegistry {
	return tools.New(filing, market, n, logger, tools.WithMetrics(m))
}

// ProvideModelClient creates the LLM client.
func ProvideModelClient(cfg *config.Config, logger *applogger.Logger, m repository.Metrics) repository.ModelClient {
	return llm.New(cfg.OpenAI.APIKey, logger,
		llm.WithModel(cfg.OpenAI.Model),
		llm.WithMaxTokens(cfg.OpenAI.MaxTokens),
		llm.WithTemperature(cfg.OpenAI.Temperature),
		llm.WithRetries(cfg.OpenAI.MaxRetries, cfg.OpenAI.Timeout/10),
		llm.WithMetrics(m),
	)
}

// ProvideAnalyzer creates the analysis orchestrator.
func ProvideAnalyzer(model repository.ModelClient, registry repository.ToolRegistry, filing repository.FilingSource, market repository.MarketSource, logger *applogger.Logger, m repository.Metrics, cfg *config.Config) *usecase.Analyzer {
	return usecase.NewAnalyzer(model, registry, filing, market, logger, m, usecase.Config{
		MaxTurns:    cfg.Analysis.MaxTurns,
		ToolTimeout: cfg.Analysis.ToolTimeout,
	})
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(logger *applogger.Logger, analyzer *usecase.Analyzer) *api.AnalyzeHandler {
	return api.NewAnalyzeHandler(logger, analyzer)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, logger *applogger.Logger, handler *api.AnalyzeHandler) *server.App {
	return server.New(cfg, logger, handler)
}
