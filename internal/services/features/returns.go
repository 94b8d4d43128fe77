package features

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"FinFolio/internal/domain/models"
)

// TradingDaysPerYear is the annualization factor for daily returns.
const TradingDaysPerYear = 252

// shortHistoryDays is the return count under which results are not annualized.
const shortHistoryDays = 5

// ReturnSeries is a dated sequence of simple daily returns.
type ReturnSeries struct {
	Dates  []time.Time
	Values []float64
}

func (r ReturnSeries) Len() int { return len(r.Values) }

// DailyReturns computes r_t = C_t / C_{t-1} - 1 for a price series. The first
// observation has no return and is dropped, so the result is one shorter.
func DailyReturns(s models.PriceSeries) ReturnSeries {
	if len(s) < 2 {
		return ReturnSeries{}
	}
	out := ReturnSeries{
		Dates:  make([]time.Time, 0, len(s)-1),
		Values: make([]float64, 0, len(s)-1),
	}
	for i := 1; i < len(s); i++ {
		r, ok := pctChange(s[i-1].Close, s[i].Close)
		if !ok {
			continue
		}
		out.Dates = append(out.Dates, s[i].Date)
		out.Values = append(out.Values, r)
	}
	return out
}

// pctChange rejects pairs whose return is undefined (zero or non-finite prices).
func pctChange(prev, cur float64) (float64, bool) {
	if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) || math.IsInf(prev, 0) || math.IsInf(cur, 0) {
		return 0, false
	}
	return cur/prev - 1, true
}

// TotalReturn compounds returns: prod(1+r) - 1.
func TotalReturn(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1 + r
	}
	return total - 1
}

// Annualize returns the annualized return and volatility of daily returns.
// Histories shorter than five days are not scaled: the total return is reported
// as-is and volatility is std*sqrt(252), or 0 with a single observation.
func Annualize(returns []float64) (annualReturn, volatility float64) {
	n := len(returns)
	total := TotalReturn(returns)
	if n > 1 {
		volatility = stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
	}
	if n < shortHistoryDays {
		return total, volatility
	}
	annualReturn = math.Pow(1+total, float64(TradingDaysPerYear)/float64(n)) - 1
	return annualReturn, volatility
}

// Sharpe is the zero-rate Sharpe ratio, 0 when volatility is 0.
func Sharpe(annualReturn, volatility float64) float64 {
	if volatility == 0 {
		return 0
	}
	return annualReturn / volatility
}

// CumulativeValue is the compounded value curve prod(1+r) starting from 1.
func CumulativeValue(returns []float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = 1 + r
	}
	return floats.CumProd(out, out)
}

// MaxDrawdown is the deepest peak-to-trough decline of the value curve,
// a non-positive fraction. 0 for an empty input.
func MaxDrawdown(returns []float64) float64 {
	var (
		peak  float64
		worst float64
	)
	for i, v := range CumulativeValue(returns) {
		if i == 0 || v > peak {
			peak = v
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// LastSMA is the simple moving average of the final period values, or nil
// when fewer than period values exist.
func LastSMA(values []float64, period int) *float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	sma := talib.Sma(values, period)
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}

// JoinOnDate inner-joins two return series on date and returns the paired
// values in date order. Both inputs must be date-ascending.
func JoinOnDate(a, b ReturnSeries) ([]float64, []float64) {
	var xs, ys []float64
	i, j := 0, 0
	for i < len(a.Dates) && j < len(b.Dates) {
		switch {
		case a.Dates[i].Before(b.Dates[j]):
			i++
		case b.Dates[j].Before(a.Dates[i]):
			j++
		default:
			xs = append(xs, a.Values[i])
			ys = append(ys, b.Values[j])
			i++
			j++
		}
	}
	return xs, ys
}
