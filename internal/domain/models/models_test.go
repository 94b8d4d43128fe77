package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" msft", "AAPL", "aapl ", "", "spy", "MSFT"})
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, got)
	assert.Empty(t, NormalizeSymbols(nil))
}

func TestAllocationNormalizedIsProportional(t *testing.T) {
	a := Allocation{"AAPL": 3, "MSFT": 1, "TLT": 4}
	n, ok := a.Normalized()
	require.True(t, ok)

	sum := a.Sum()
	var total float64
	for sym, w := range n {
		assert.InDelta(t, a[sym]/sum, w, 1e-12, sym)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestAllocationNormalizedKeepsUnitSum(t *testing.T) {
	a := Allocation{"AAPL": 0.6, "MSFT": 0.4000004}
	n, ok := a.Normalized()
	require.True(t, ok)
	assert.Equal(t, 0.6, n["AAPL"])
	assert.Equal(t, 0.4000004, n["MSFT"])
}

func TestAllocationNormalizedZeroSum(t *testing.T) {
	_, ok := Allocation{"AAPL": 0.5, "MSFT": -0.5}.Normalized()
	assert.False(t, ok)
}

func TestAllocationUpperMergesKeys(t *testing.T) {
	a := Allocation{"aapl": 0.25, "AAPL": 0.25, " msft ": 0.5}.Upper()
	assert.Equal(t, Allocation{"AAPL": 0.5, "MSFT": 0.5}, a)
}

func TestPriceSeriesNormalize(t *testing.T) {
	d := func(day, hour int) time.Time { return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC) }
	s := PriceSeries{
		{Date: d(3, 16), Close: 12},
		{Date: d(1, 16), Close: 10},
		{Date: d(2, 16), Close: 11},
		{Date: d(2, 20), Close: 11.5},
	}.Normalize()

	require.Len(t, s, 3)
	assert.Equal(t, []float64{10, 11.5, 12}, s.Closes())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s[0].Date)
}

func TestBundleJSONLayout(t *testing.T) {
	b := Bundle{
		Assets: map[string]AssetMetrics{
			"AAPL": {TotalReturn: 0.1234, SharpeRatio: Float(math.NaN()), Beta: F(1.2), PeriodDays: 10},
		},
		PortfolioError: "Portfolio weights for available assets sum to zero.",
	}
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	aapl := decoded["AAPL"]
	assert.Equal(t, 0.1234, aapl["total_return"])
	assert.Nil(t, aapl["sharpe_ratio"], "NaN must serialize as null")
	assert.Nil(t, aapl["sma_50"])
	assert.Equal(t, 1.2, aapl["beta"])
	assert.Equal(t, "Portfolio weights for available assets sum to zero.", decoded["portfolio"]["error"])
}

func TestBundleJSONTopLevelError(t *testing.T) {
	raw, err := json.Marshal(&Bundle{Error: "No financial data available"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"No financial data available"}`, string(raw))
}

func TestComposeRequest(t *testing.T) {
	capital := 10000.0
	assert.Equal(t,
		"I want to invest $10000 for a time horizon of 5 years. My risk tolerance is medium. Specific preferences: focus on tech.",
		ComposeRequest(&capital, "5 years", "medium", "focus on tech"))
	assert.Equal(t,
		"I want to invest $an amount for a time horizon of long-term. My risk tolerance is low. No specific preferences mentioned.",
		ComposeRequest(nil, "long-term", "low", "  "))
}

func TestPortfolioRequestTextPrefersFreeText(t *testing.T) {
	r := PortfolioRequest{Request: "  Build me a growth portfolio  ", TimeHorizon: "5 years", RiskTolerance: "high"}
	assert.Equal(t, "Build me a growth portfolio", r.Text())
}

func TestProfilePreferencesText(t *testing.T) {
	assert.Equal(t, "tech", Profile{SpecificPreferences: "tech"}.PreferencesText())
	assert.Equal(t, "avoid oil", Profile{Preferences: json.RawMessage(`"avoid oil"`)}.PreferencesText())
	assert.Equal(t, `{"sector_focus":"tech"}`, Profile{Preferences: json.RawMessage(`{"sector_focus":"tech"}`)}.PreferencesText())
	assert.Empty(t, Profile{Preferences: json.RawMessage(`null`)}.PreferencesText())
}

func TestProfileHorizonAcceptsNumbers(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"time_horizon": 7, "suggested_assets": ["AAPL"]}`), &p))
	assert.Equal(t, Horizon("7"), p.TimeHorizon)

	require.NoError(t, json.Unmarshal([]byte(`{"time_horizon": "3-5 years"}`), &p))
	assert.Equal(t, Horizon("3-5 years"), p.TimeHorizon)
}
