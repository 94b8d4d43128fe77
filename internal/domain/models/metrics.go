package models

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Float is a float64 that serializes NaN and ±Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// NullableFloat is a Float that may be absent (undefined calculation).
type NullableFloat = *Float

// F wraps v for a nullable metric field.
func F(v float64) NullableFloat {
	f := Float(v)
	return &f
}

// AssetMetrics are the per-symbol statistics. Nullable fields are nil when the
// underlying calculation is undefined for the input.
type AssetMetrics struct {
	TotalReturn          Float         `json:"total_return"`
	AnnualizedReturn     Float         `json:"annualized_return"`
	AnnualizedVolatility Float         `json:"annualized_volatility"`
	SharpeRatio          Float         `json:"sharpe_ratio"`
	MaxDrawdown          Float         `json:"max_drawdown"`
	Beta                 NullableFloat `json:"beta"`
	ExpectedReturnCAPM   NullableFloat `json:"expected_return_capm"`
	SMA50                NullableFloat `json:"sma_50"`
	SMA200               NullableFloat `json:"sma_200"`
	PeriodDays           int           `json:"period_days"`
}

// Momentum labels derived from the portfolio-level moving averages.
const (
	MomentumBullish      = "Bullish (50d > 200d SMA)"
	MomentumBearish      = "Bearish (50d < 200d SMA)"
	MomentumShortHistory = "Neutral (Insufficient history for 200d SMA)"
	MomentumNeutral      = "Neutral"
)

type PortfolioMetrics struct {
	TotalReturn          Float         `json:"total_return"`
	AnnualizedReturn     Float         `json:"annualized_return"`
	AnnualizedVolatility Float         `json:"annualized_volatility"`
	SharpeRatio          Float         `json:"sharpe_ratio"`
	MaxDrawdown          Float         `json:"max_drawdown"`
	ExpectedReturnCAPM   NullableFloat `json:"expected_return_capm"`
	SMA50                NullableFloat `json:"portfolio_sma_50"`
	SMA200               NullableFloat `json:"portfolio_sma_200"`
	MomentumOutlook      string        `json:"portfolio_momentum_outlook"`
	IncludedAssets       []string      `json:"included_assets"`
	PeriodDays           int           `json:"period_days"`
	OriginalWeightSum    Float         `json:"original_weight_sum"`
	IncludedWeightSum    Float         `json:"included_weight_sum"`
	CAPMWeightCoverage   Float         `json:"capm_calculation_weight_coverage"`
}

// Bundle is the full output of one metrics computation.
//
// Assets holds every symbol that had enough history. Portfolio is set only when
// an allocation was supplied and aggregation succeeded; otherwise PortfolioError
// explains why. Error is set for input or internal failures and may coexist
// with partial results.
type Bundle struct {
	Assets         map[string]AssetMetrics
	Portfolio      *PortfolioMetrics
	PortfolioError string
	Error          string
}

func (b *Bundle) HasError() bool { return b != nil && b.Error != "" }

// Asset looks up the metrics for symbol.
func (b *Bundle) Asset(symbol string) (AssetMetrics, bool) {
	if b == nil {
		return AssetMetrics{}, false
	}
	m, ok := b.Assets[symbol]
	return m, ok
}

// MarshalJSON writes the flat layout consumers expect:
// {"AAPL": {...}, "portfolio": {...} | {"error": "..."}, "error": "..."}.
func (b Bundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v interface{}) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	symbols := make([]string, 0, len(b.Assets))
	for sym := range b.Assets {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		if err := write(sym, b.Assets[sym]); err != nil {
			return nil, err
		}
	}

	switch {
	case b.Portfolio != nil:
		if err := write("portfolio", b.Portfolio); err != nil {
			return nil, err
		}
	case b.PortfolioError != "":
		if err := write("portfolio", map[string]string{"error": b.PortfolioError}); err != nil {
			return nil, err
		}
	}
	if b.Error != "" {
		if err := write("error", b.Error); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
