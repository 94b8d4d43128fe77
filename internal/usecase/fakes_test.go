package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"FinFolio/internal/domain/models"
	drepo "FinFolio/internal/domain/repository"
)

var (
	seriesStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2025, 6, 30, 15, 4, 5, 0, time.UTC)
	errNoData   = errors.New("no price history")
)

func wave(n int, base, drift, amp, freq float64) models.PriceSeries {
	out := make(models.PriceSeries, n)
	for i := 0; i < n; i++ {
		c := base * (1 + drift*float64(i) + amp*math.Sin(float64(i)*freq))
		out[i] = models.PricePoint{Date: seriesStart.AddDate(0, 0, i), Close: c}
	}
	return out
}

func marketData(n int) models.PriceData {
	return models.PriceData{
		"AAPL":                 wave(n, 150, 0.002, 0.03, 0.7),
		"MSFT":                 wave(n, 300, 0.001, 0.02, 1.3),
		models.BenchmarkSymbol: wave(n, 4000, 0.0008, 0.01, 0.9),
	}
}

type scriptedAdvisor struct {
	profile       models.Profile
	profileErr    error
	proposal      models.Proposal
	proposalErr   error
	commentary    string
	commentaryErr error

	gotRequest    string
	gotProposal   models.ProposalInput
	gotCommentary models.CommentaryInput
}

func (a *scriptedAdvisor) ParseProfile(_ context.Context, request string) (models.Profile, error) {
	a.gotRequest = request
	return a.profile, a.profileErr
}

func (a *scriptedAdvisor) ProposeAllocation(_ context.Context, in models.ProposalInput) (models.Proposal, error) {
	a.gotProposal = in
	return a.proposal, a.proposalErr
}

func (a *scriptedAdvisor) Commentary(_ context.Context, in models.CommentaryInput) (string, error) {
	a.gotCommentary = in
	return a.commentary, a.commentaryErr
}

type mapPrices struct {
	data    models.PriceData
	fetched []string
	window  models.DateRange
}

func (m *mapPrices) History(_ context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	m.fetched = append(m.fetched, symbol)
	m.window = r
	s, ok := m.data[symbol]
	if !ok {
		return nil, errNoData
	}
	return s, nil
}

type fakeNews struct {
	digest string
	err    error
	query  string
}

func (f *fakeNews) News(_ context.Context, q string) (string, error) {
	f.query = q
	return f.digest, f.err
}

type stageCall struct {
	stage, outcome string
}

type recordingMetrics struct {
	mu     sync.Mutex
	stages []stageCall
	runs   []string
	errs   []string
}

func (r *recordingMetrics) RecordStage(stage, outcome string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stageCall{stage, outcome})
}

func (r *recordingMetrics) RecordRun(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, outcome)
}

func (r *recordingMetrics) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, kind)
}

func (r *recordingMetrics) RecordLatency(string, float64) {}

type capturePublisher struct {
	got []*drepo.RunSummary
	err error
}

func (c *capturePublisher) Publish(_ context.Context, s *drepo.RunSummary) error {
	c.got = append(c.got, s)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }
