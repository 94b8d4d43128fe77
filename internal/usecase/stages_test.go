package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/services/analytics"
	"FinFolio/internal/services/report"
)

func goodAdvisor() *scriptedAdvisor {
	return &scriptedAdvisor{
		profile: models.Profile{
			Goal:            "growth",
			RiskTolerance:   "high",
			TimeHorizon:     "1 year",
			SuggestedAssets: []string{"msft", " aapl", "TSLA"},
		},
		proposal: models.Proposal{
			Allocation: models.Allocation{"aapl": 0.6, "MSFT": 0.4, "NVDA": 0.1},
			Reasoning:  "Tilt to AAPL for momentum.",
		},
		commentary: "A concentrated tech portfolio.",
	}
}

func newTestPipeline(adv *scriptedAdvisor, prices *mapPrices, opts ...StagesOption) *Pipeline {
	opts = append([]StagesOption{WithStageClock(func() time.Time { return fixedNow })}, opts...)
	stages := NewStages(adv, prices, analytics.NewEngine(), report.NewBuilder(0.045, 0.09), opts...)
	return NewPipeline(stages.Handlers(), WithRunIDs(fixedID))
}

func TestStagesEndToEnd(t *testing.T) {
	adv := goodAdvisor()
	prices := &mapPrices{data: marketData(300)}

	st, err := newTestPipeline(adv, prices).Run(context.Background(), "Invest in big tech")
	require.NoError(t, err)
	require.False(t, st.Failed(), st.Error)

	assert.Equal(t, StageStructureReport, st.Step)
	assert.Equal(t, 8, st.Transitions)
	assert.Equal(t, "Invest in big tech", adv.gotRequest)

	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA", models.BenchmarkSymbol}, prices.fetched)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), prices.window.Start)
	assert.Equal(t, []string{"AAPL", "MSFT"}, st.Universe)
	assert.Equal(t, []string{"AAPL", "MSFT"}, adv.gotProposal.Universe)
	assert.Equal(t, newsNotConfigured, st.News)

	// NVDA is outside the universe; the rest renormalizes from 1.0 unchanged.
	assert.Equal(t, models.Allocation{"AAPL": 0.6, "MSFT": 0.4}, st.Allocation)
	assert.Equal(t, "Tilt to AAPL for momentum.", st.Reasoning)

	require.NotNil(t, st.Metrics)
	require.NotNil(t, st.Metrics.Portfolio)
	assert.Equal(t, []string{"AAPL", "MSFT"}, st.Metrics.Portfolio.IncludedAssets)
	assert.Equal(t, 299, st.Metrics.Portfolio.PeriodDays)
	assert.NotNil(t, st.Metrics.Portfolio.SMA200)
	assert.Contains(t, st.Metrics.Assets, "AAPL")

	require.NotNil(t, st.Validation)
	assert.True(t, st.Validation.Passed())

	assert.True(t, strings.HasPrefix(st.Commentary, "A concentrated tech portfolio."))
	assert.Contains(t, st.Commentary, "does not constitute financial advice")
	assert.Equal(t, st.Validation, adv.gotCommentary.Validation)

	assert.True(t, strings.HasPrefix(st.Report, "# Financial Portfolio Report"))
	assert.Contains(t, st.Report, "AAPL")
}

func TestStagesRenormalizeProposal(t *testing.T) {
	adv := goodAdvisor()
	adv.proposal.Allocation = models.Allocation{"AAPL": 3, "MSFT": 1}

	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	require.False(t, st.Failed(), st.Error)
	assert.InDelta(t, 0.75, st.Allocation["AAPL"], 1e-12)
	assert.InDelta(t, 0.25, st.Allocation["MSFT"], 1e-12)
}

func TestStagesParseFailure(t *testing.T) {
	adv := &scriptedAdvisor{profileErr: errors.New("model unavailable")}
	prices := &mapPrices{}

	st, err := newTestPipeline(adv, prices).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "Failed to parse user request with LLM: model unavailable", st.Error)
	assert.Equal(t, StageHandleError, st.Step)
	assert.Contains(t, st.Report, "# Portfolio Generation Failed")
	assert.Contains(t, st.Report, "model unavailable")
	assert.Empty(t, prices.fetched)
}

func TestStagesNoAssets(t *testing.T) {
	adv := &scriptedAdvisor{profile: models.Profile{Goal: "growth", SuggestedAssets: []string{" ", ""}}}
	st, err := newTestPipeline(adv, &mapPrices{}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "No assets were identified or generated to proceed.", st.Error)
	assert.Equal(t, 2, st.Transitions)
}

func TestStagesNoPriceData(t *testing.T) {
	st, err := newTestPipeline(goodAdvisor(), &mapPrices{}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "Failed to fetch ANY valid data for the identified assets or benchmark. Cannot proceed.", st.Error)
	assert.Equal(t, StageHandleError, st.Step)
}

func TestStagesOnlyBenchmarkFetched(t *testing.T) {
	data := models.PriceData{models.BenchmarkSymbol: wave(100, 4000, 0.001, 0.01, 0.9)}
	st, err := newTestPipeline(goodAdvisor(), &mapPrices{data: data}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "Missing required inputs (profile, metrics, or asset universe) to propose portfolio.", st.Error)
}

func TestStagesProposalOutsideUniverse(t *testing.T) {
	adv := goodAdvisor()
	adv.proposal.Allocation = models.Allocation{"GOOG": 1}
	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "LLM proposed portfolio contained no valid/available assets.", st.Error)
}

func TestStagesProposalFailure(t *testing.T) {
	adv := goodAdvisor()
	adv.proposalErr = errors.New("circuit breaker is open")
	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "Failed to propose portfolio with LLM: circuit breaker is open", st.Error)
	assert.Equal(t, StageHandleError, st.Step)
}

func TestStagesZeroSumProposalFailsValidation(t *testing.T) {
	adv := goodAdvisor()
	adv.proposal.Allocation = models.Allocation{"AAPL": 0.5, "MSFT": -0.5}
	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, models.Allocation{"AAPL": 0.5, "MSFT": -0.5}, st.Allocation)
	assert.True(t, strings.HasPrefix(st.Error, "Portfolio validation failed: "), st.Error)
	assert.Contains(t, st.Error, "Portfolio weights sum to 0.0000")
}

func TestStagesCommentaryFailureIsNotFatal(t *testing.T) {
	adv := goodAdvisor()
	adv.commentaryErr = errors.New("timeout")
	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.False(t, st.Failed())
	assert.Equal(t, "Failed to generate commentary: timeout", st.Commentary)
	assert.Equal(t, StageStructureReport, st.Step)
}

func TestStagesCommentaryKeepsExistingDisclaimer(t *testing.T) {
	adv := goodAdvisor()
	adv.commentary = "Balanced.\n\nDisclaimer: for education only."
	st, err := newTestPipeline(adv, &mapPrices{data: marketData(120)}).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, adv.commentary, st.Commentary)
}

func TestStagesNews(t *testing.T) {
	news := &fakeNews{digest: "- Rates unchanged."}
	st, err := newTestPipeline(goodAdvisor(), &mapPrices{data: marketData(120)}, WithNewsSource(news)).
		Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "- Rates unchanged.", st.News)
	assert.Equal(t,
		"Recent market news relevant to investment goal 'growth' with risk tolerance 'high' focusing on potential assets like AAPL, MSFT, TSLA",
		news.query)

	failing := &fakeNews{err: errors.New("401 unauthorized")}
	st, err = newTestPipeline(goodAdvisor(), &mapPrices{data: marketData(120)}, WithNewsSource(failing)).
		Run(context.Background(), "req")
	require.NoError(t, err)
	assert.False(t, st.Failed())
	assert.Equal(t, "Failed to fetch news: 401 unauthorized", st.News)
}

func TestNewsQueryDefaults(t *testing.T) {
	assert.Equal(t,
		"Recent market news relevant to investment goal 'general investing' with risk tolerance 'medium'",
		newsQuery(nil, nil))
}

func TestStagesExplicitDateRange(t *testing.T) {
	adv := goodAdvisor()
	adv.profile.StartDate = "2023-01-01"
	adv.profile.EndDate = "2024-01-01"
	prices := &mapPrices{data: marketData(120)}

	_, err := newTestPipeline(adv, prices).Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), prices.window.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), prices.window.End)
}
