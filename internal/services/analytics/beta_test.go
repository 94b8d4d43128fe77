package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/services/features"
	"FinFolio/pkg/logger"
)

// referenceBeta is sample Cov(a,b)/Var(b) written out longhand.
func referenceBeta(a, b []float64) float64 {
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n
	var cov, varb float64
	for i := range a {
		cov += (a[i] - ma) * (b[i] - mb)
		varb += (b[i] - mb) * (b[i] - mb)
	}
	return (cov / (n - 1)) / (varb / (n - 1))
}

func TestBetaResolverAtMinimumOverlap(t *testing.T) {
	asset := wave(61, 100, 0.001, 0.03, 0.8)
	bench := features.DailyReturns(wave(61, 4000, 0.0005, 0.01, 0.6))
	require.Equal(t, 60, bench.Len())

	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	beta := r.Resolve(context.Background(), "AAPL", asset, bench)
	require.NotNil(t, beta)

	xs, ys := features.JoinOnDate(features.DailyReturns(asset), bench)
	assert.InDelta(t, referenceBeta(xs, ys), *beta, 1e-9)
}

func TestBetaResolverBelowMinimumOverlap(t *testing.T) {
	asset := wave(60, 100, 0.001, 0.03, 0.8)
	bench := features.DailyReturns(wave(60, 4000, 0.0005, 0.01, 0.6))

	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	assert.Nil(t, r.Resolve(context.Background(), "AAPL", asset, bench))
}

func TestBetaResolverOnlyCountsCommonDates(t *testing.T) {
	asset := wave(100, 100, 0.001, 0.03, 0.8)
	// Benchmark starts 50 days later, leaving 49 overlapping returns.
	benchSeries := wave(100, 4000, 0.0005, 0.01, 0.6)
	for i := range benchSeries {
		benchSeries[i].Date = benchSeries[i].Date.AddDate(0, 0, 50)
	}
	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	assert.Nil(t, r.Resolve(context.Background(), "AAPL", asset, features.DailyReturns(benchSeries)))
}

func TestBetaResolverFlatBenchmark(t *testing.T) {
	asset := wave(100, 100, 0.001, 0.03, 0.8)
	flat := wave(100, 4000, 0, 0, 1)
	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	assert.Nil(t, r.Resolve(context.Background(), "AAPL", asset, features.DailyReturns(flat)))
}

func TestBetaResolverWithoutBenchmark(t *testing.T) {
	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	assert.Nil(t, r.Resolve(context.Background(), "AAPL", wave(100, 100, 0.001, 0.03, 0.8), features.ReturnSeries{}))
}

func TestBetaResolverPrefersExternal(t *testing.T) {
	r := NewBetaResolver(&stubBeta{beta: map[string]float64{"SPY": 0.97}}, DefaultMinBetaPeriods, logger.Nop())
	beta := r.Resolve(context.Background(), "SPY", models.PriceSeries{}, features.ReturnSeries{})
	require.NotNil(t, beta)
	assert.Equal(t, 0.97, *beta)
}

func TestBetaResolverTracksScaledAsset(t *testing.T) {
	bench := wave(120, 4000, 0.0005, 0.01, 0.6)
	benchReturns := features.DailyReturns(bench)

	// Asset returns are exactly twice the benchmark's.
	asset := make(models.PriceSeries, len(bench))
	asset[0] = models.PricePoint{Date: bench[0].Date, Close: 50}
	for i := 1; i < len(bench); i++ {
		asset[i] = models.PricePoint{Date: bench[i].Date, Close: asset[i-1].Close * (1 + 2*benchReturns.Values[i-1])}
	}

	r := NewBetaResolver(nil, DefaultMinBetaPeriods, logger.Nop())
	beta := r.Resolve(context.Background(), "LEV", asset, benchReturns)
	require.NotNil(t, beta)
	assert.InDelta(t, 2.0, *beta, 1e-9)
}
