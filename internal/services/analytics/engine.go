package analytics

import (
	"context"
	"fmt"
	"sort"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/domain/repository"
	"FinFolio/internal/services/features"
	"FinFolio/pkg/logger"
)

const (
	DefaultRiskFreeRate         = 0.045
	DefaultExpectedMarketReturn = 0.09
)

// Engine computes per-asset and portfolio analytics from daily closes.
// It holds no state between calls; identical inputs give identical output.
type Engine struct {
	riskFree     float64
	marketReturn float64
	benchmark    string
	minPeriods   int
	betaSource   repository.BetaSource
	log          *logger.Logger
}

type Option func(*Engine)

func WithRiskFreeRate(r float64) Option { return func(e *Engine) { e.riskFree = r } }

func WithExpectedMarketReturn(r float64) Option { return func(e *Engine) { e.marketReturn = r } }

func WithBenchmark(symbol string) Option { return func(e *Engine) { e.benchmark = symbol } }

func WithMinBetaPeriods(n int) Option { return func(e *Engine) { e.minPeriods = n } }

// WithBetaSource sets the provider of published betas. Without one, every
// beta is estimated from the price history.
func WithBetaSource(s repository.BetaSource) Option { return func(e *Engine) { e.betaSource = s } }

func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		riskFree:     DefaultRiskFreeRate,
		marketReturn: DefaultExpectedMarketReturn,
		benchmark:    models.BenchmarkSymbol,
		minPeriods:   DefaultMinBetaPeriods,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	e.log = e.log.With(logger.String("component", "metrics_engine"))
	return e
}

// Compute derives metrics for every non-benchmark symbol in data and, when
// alloc is non-nil, for the weighted portfolio. Failures never escape: they
// are reported through Bundle.Error and Bundle.PortfolioError.
func (e *Engine) Compute(ctx context.Context, data models.PriceData, alloc models.Allocation) (out *models.Bundle) {
	out = &models.Bundle{Assets: make(map[string]models.AssetMetrics)}
	if len(data) == 0 {
		e.log.Warn("no financial data provided for metric calculation")
		return &models.Bundle{Error: "No financial data available"}
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("metrics calculation panicked", logger.Any("panic", r))
			out.Error = fmt.Sprintf("Calculation failed: %v", r)
		}
	}()

	e.log.Info("calculating metrics",
		logger.Float64("risk_free_rate", e.riskFree),
		logger.Float64("expected_market_return", e.marketReturn),
		logger.String("benchmark", e.benchmark))

	var benchmarkReturns features.ReturnSeries
	if bench, ok := data[e.benchmark]; ok {
		benchmarkReturns = features.DailyReturns(bench)
	}
	if benchmarkReturns.Len() == 0 {
		e.log.Warn("benchmark returns unavailable, manual beta disabled", logger.String("benchmark", e.benchmark))
	}

	symbols := e.assetSymbols(data)
	resolver := NewBetaResolver(e.betaSource, e.minPeriods, e.log)
	betas := make(map[string]*float64, len(symbols))
	for _, sym := range symbols {
		betas[sym] = resolver.Resolve(ctx, sym, data[sym], benchmarkReturns)
	}

	if alloc != nil {
		pm, err := e.portfolio(data, alloc, betas)
		if err != nil {
			e.log.Warn("portfolio metrics unavailable", logger.Error(err))
			out.PortfolioError = err.Error()
		} else {
			out.Portfolio = pm
		}
	}

	for _, sym := range symbols {
		m, ok := e.asset(sym, data[sym], betas[sym])
		if !ok {
			continue
		}
		out.Assets[sym] = m
	}
	if alloc == nil {
		e.log.Debug("portfolio metrics not requested")
	}
	e.log.Info("metrics calculation complete", logger.Int("assets", len(out.Assets)))
	return out
}

// assetSymbols lists the investable symbols of data in sorted order.
func (e *Engine) assetSymbols(data models.PriceData) []string {
	out := make([]string, 0, len(data))
	for sym := range data {
		if sym == e.benchmark {
			continue
		}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) capm(beta float64) float64 {
	return e.riskFree + beta*(e.marketReturn-e.riskFree)
}

func (e *Engine) asset(symbol string, series models.PriceSeries, beta *float64) (models.AssetMetrics, bool) {
	if len(series) == 0 {
		e.log.Warn("skipping asset metrics: empty history", logger.String("symbol", symbol))
		return models.AssetMetrics{}, false
	}
	returns := features.DailyReturns(series).Values
	if len(returns) < 2 {
		e.log.Warn("skipping asset metrics: not enough return data",
			logger.String("symbol", symbol), logger.Int("points", len(returns)))
		return models.AssetMetrics{}, false
	}

	annual, vol := features.Annualize(returns)
	m := models.AssetMetrics{
		TotalReturn:          round(features.TotalReturn(returns), ratioPlaces),
		AnnualizedReturn:     round(annual, ratioPlaces),
		AnnualizedVolatility: round(vol, ratioPlaces),
		SharpeRatio:          round(features.Sharpe(annual, vol), coefPlaces),
		MaxDrawdown:          round(features.MaxDrawdown(returns), ratioPlaces),
		Beta:                 roundPtr(beta, coefPlaces),
		PeriodDays:           len(returns),
	}
	if beta != nil {
		capm := e.capm(*beta)
		m.ExpectedReturnCAPM = roundPtr(&capm, ratioPlaces)
	}
	closes := series.Closes()
	m.SMA50 = roundPtr(features.LastSMA(closes, 50), coefPlaces)
	m.SMA200 = roundPtr(features.LastSMA(closes, 200), coefPlaces)
	return m, true
}
