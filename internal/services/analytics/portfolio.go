package analytics

import (
	"errors"
	"math"
	"sort"
	"time"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/services/features"
	"FinFolio/pkg/logger"
)

var (
	ErrNoAlignedData = errors.New("No valid/aligned data found for tickers in the portfolio.")
	ErrAlignment     = errors.New("Could not align data for portfolio calculation.")
	ErrZeroWeights   = errors.New("Portfolio weights for available assets sum to zero.")
	ErrNoReturns     = errors.New("Could not calculate returns (e.g., only one data point).")
)

// alignedCloses holds closes of several symbols on their common dates.
type alignedCloses struct {
	symbols []string
	dates   []time.Time
	closes  [][]float64 // closes[row][col], col follows symbols
}

// align intersects the date indexes of the given symbols. Rows holding an
// unusable close for any symbol are dropped.
func align(data models.PriceData, symbols []string) (*alignedCloses, error) {
	var common map[time.Time]struct{}
	byDate := make([]map[time.Time]float64, len(symbols))
	for i, sym := range symbols {
		idx := make(map[time.Time]float64, len(data[sym]))
		for _, p := range data[sym] {
			idx[p.Date] = p.Close
		}
		byDate[i] = idx
		if common == nil {
			common = make(map[time.Time]struct{}, len(idx))
			for d := range idx {
				common[d] = struct{}{}
			}
			continue
		}
		for d := range common {
			if _, ok := idx[d]; !ok {
				delete(common, d)
			}
		}
	}
	if len(common) == 0 {
		return nil, ErrNoAlignedData
	}

	dates := make([]time.Time, 0, len(common))
	for d := range common {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := &alignedCloses{symbols: symbols}
	for _, d := range dates {
		row := make([]float64, len(symbols))
		usable := true
		for i := range symbols {
			c := byDate[i][d]
			if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				usable = false
				break
			}
			row[i] = c
		}
		if !usable {
			continue
		}
		out.dates = append(out.dates, d)
		out.closes = append(out.closes, row)
	}
	if len(out.dates) == 0 {
		return nil, ErrAlignment
	}
	return out, nil
}

// returns computes the weighted daily return of the aligned frame.
func (a *alignedCloses) returns(weights []float64) []float64 {
	if len(a.closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(a.closes)-1)
	for t := 1; t < len(a.closes); t++ {
		var r float64
		for i, w := range weights {
			r += w * (a.closes[t][i]/a.closes[t-1][i] - 1)
		}
		out = append(out, r)
	}
	return out
}

func (e *Engine) portfolio(data models.PriceData, alloc models.Allocation, betas map[string]*float64) (*models.PortfolioMetrics, error) {
	upper := alloc.Upper()
	e.log.Info("calculating portfolio metrics", logger.Strings("tickers", upper.Symbols()))

	included := upper.Restrict(func(sym string) bool {
		if sym == e.benchmark || len(data[sym]) == 0 {
			e.log.Warn("data missing or invalid for portfolio ticker, excluding", logger.String("symbol", sym))
			return false
		}
		return true
	})
	if len(included) == 0 {
		return nil, ErrNoAlignedData
	}
	symbols := included.Symbols()

	frame, err := align(data, symbols)
	if err != nil {
		return nil, err
	}

	includedSum := included.Sum()
	normalized, ok := included.Normalized()
	if !ok {
		return nil, ErrZeroWeights
	}
	weights := make([]float64, len(symbols))
	for i, sym := range symbols {
		weights[i] = normalized[sym]
	}

	returns := frame.returns(weights)
	if len(returns) == 0 {
		return nil, ErrNoReturns
	}

	annual, vol := features.Annualize(returns)
	pm := &models.PortfolioMetrics{
		TotalReturn:          round(features.TotalReturn(returns), ratioPlaces),
		AnnualizedReturn:     round(annual, ratioPlaces),
		AnnualizedVolatility: round(vol, ratioPlaces),
		SharpeRatio:          round(features.Sharpe(annual, vol), coefPlaces),
		MaxDrawdown:          round(features.MaxDrawdown(returns), ratioPlaces),
		IncludedAssets:       symbols,
		PeriodDays:           len(returns),
		OriginalWeightSum:    round(alloc.Sum(), ratioPlaces),
		IncludedWeightSum:    round(includedSum, ratioPlaces),
	}

	var capmSum, coverage float64
	for i, sym := range symbols {
		beta := betas[sym]
		if beta == nil {
			continue
		}
		capmSum += weights[i] * e.capm(*beta)
		coverage += weights[i]
	}
	if coverage > models.WeightEpsilon {
		capm := capmSum / coverage
		pm.ExpectedReturnCAPM = roundPtr(&capm, ratioPlaces)
	} else {
		e.log.Warn("portfolio CAPM unavailable: no constituent has a beta")
	}
	pm.CAPMWeightCoverage = round(coverage, ratioPlaces)

	value := features.CumulativeValue(returns)
	sma50 := features.LastSMA(value, 50)
	sma200 := features.LastSMA(value, 200)
	pm.SMA50 = roundPtr(sma50, coefPlaces)
	pm.SMA200 = roundPtr(sma200, coefPlaces)
	pm.MomentumOutlook = momentum(sma50, sma200)
	return pm, nil
}

func momentum(sma50, sma200 *float64) string {
	switch {
	case sma50 != nil && sma200 != nil && *sma50 > *sma200:
		return models.MomentumBullish
	case sma50 != nil && sma200 != nil && *sma50 < *sma200:
		return models.MomentumBearish
	case sma50 != nil && sma200 != nil:
		return models.MomentumNeutral
	case sma50 != nil:
		return models.MomentumShortHistory
	default:
		return models.MomentumNeutral
	}
}
