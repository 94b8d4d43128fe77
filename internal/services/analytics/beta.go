package analytics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/domain/repository"
	"FinFolio/internal/services/features"
	"FinFolio/pkg/logger"
)

// DefaultMinBetaPeriods is the minimum number of overlapping daily returns
// required for a covariance-based beta.
const DefaultMinBetaPeriods = 60

const minBenchmarkVariance = 1e-12

// BetaResolver resolves an asset's beta against the benchmark. A published
// coefficient from the external source is authoritative; otherwise beta is
// estimated as Cov(asset, benchmark) / Var(benchmark) over common dates.
type BetaResolver struct {
	source     repository.BetaSource
	minPeriods int
	log        *logger.Logger
}

func NewBetaResolver(source repository.BetaSource, minPeriods int, log *logger.Logger) *BetaResolver {
	if minPeriods <= 1 {
		minPeriods = DefaultMinBetaPeriods
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BetaResolver{source: source, minPeriods: minPeriods, log: log}
}

// Resolve returns nil when no beta can be established. It never substitutes
// a default coefficient.
func (r *BetaResolver) Resolve(ctx context.Context, symbol string, series models.PriceSeries, benchmark features.ReturnSeries) *float64 {
	if r.source != nil {
		b, err := r.source.Beta(ctx, symbol)
		switch {
		case err != nil:
			r.log.Warn("external beta lookup failed", logger.String("symbol", symbol), logger.Error(err))
		case b != nil && !math.IsNaN(*b) && !math.IsInf(*b, 0):
			r.log.Info("beta resolved", logger.String("symbol", symbol),
				logger.Float64("beta", *b), logger.String("source", "external"))
			return b
		}
	}

	if benchmark.Len() == 0 {
		r.log.Warn("beta unavailable: no benchmark returns", logger.String("symbol", symbol))
		return nil
	}
	asset := features.DailyReturns(series)
	if asset.Len() == 0 {
		r.log.Warn("beta unavailable: no asset returns", logger.String("symbol", symbol))
		return nil
	}
	xs, ys := features.JoinOnDate(asset, benchmark)
	if len(xs) < r.minPeriods {
		r.log.Warn("beta unavailable: insufficient overlap with benchmark",
			logger.String("symbol", symbol), logger.Int("overlap", len(xs)), logger.Int("required", r.minPeriods))
		return nil
	}
	variance := stat.Variance(ys, nil)
	if math.Abs(variance) < minBenchmarkVariance {
		r.log.Warn("beta unavailable: benchmark variance is zero", logger.String("symbol", symbol))
		return nil
	}
	beta := stat.Covariance(xs, ys, nil) / variance
	r.log.Info("beta resolved", logger.String("symbol", symbol),
		logger.Float64("beta", beta), logger.String("source", "calculated"))
	return &beta
}
