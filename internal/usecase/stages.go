package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinFolio/internal/domain/models"
	drepo "FinFolio/internal/domain/repository"
	domsvc "FinFolio/internal/domain/service"
	"FinFolio/internal/services/analytics"
	"FinFolio/internal/services/report"
	"FinFolio/pkg/logger"
)

const (
	newsNotConfigured  = "N/A (Tool not configured)"
	commentaryDisclaim = "\n\n**Disclaimer:** This is an AI-generated analysis and does not constitute financial advice. " +
		"Consult a qualified professional before making investment decisions."
)

// Stages holds the collaborators the stage handlers call into.
type Stages struct {
	advisor      domsvc.Advisor
	news         drepo.NewsSource
	prices       drepo.PriceSource
	engine       *analytics.Engine
	reports      *report.Builder
	metrics      drepo.Metrics
	benchmark    string
	defaultYears int
	now          func() time.Time
	log          *logger.Logger
}

type StagesOption func(*Stages)

// WithNewsSource enables the news stage. Without it the digest is a placeholder.
func WithNewsSource(n drepo.NewsSource) StagesOption {
	return func(s *Stages) { s.news = n }
}

func WithStageBenchmark(symbol string) StagesOption {
	return func(s *Stages) {
		if symbol != "" {
			s.benchmark = strings.ToUpper(symbol)
		}
	}
}

func WithDefaultYears(n int) StagesOption {
	return func(s *Stages) {
		if n > 0 {
			s.defaultYears = n
		}
	}
}

func WithStageClock(now func() time.Time) StagesOption {
	return func(s *Stages) { s.now = now }
}

func WithStageMetrics(m drepo.Metrics) StagesOption {
	return func(s *Stages) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithStageLogger(l *logger.Logger) StagesOption {
	return func(s *Stages) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStages(advisor domsvc.Advisor, prices drepo.PriceSource, engine *analytics.Engine, reports *report.Builder, opts ...StagesOption) *Stages {
	s := &Stages{
		advisor:      advisor,
		prices:       prices,
		engine:       engine,
		reports:      reports,
		metrics:      nopMetrics{},
		benchmark:    models.BenchmarkSymbol,
		defaultYears: DefaultHorizonYears,
		now:          time.Now,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handlers maps every stage to its handler.
func (s *Stages) Handlers() map[Stage]Handler {
	return map[Stage]Handler{
		StageParseRequest:       s.parseRequest,
		StageFetchNews:          s.fetchNews,
		StageFetchData:          s.fetchData,
		StageComputeMetrics:     s.computeMetrics,
		StageProposeAllocation:  s.proposeAllocation,
		StageValidate:           s.validate,
		StageGenerateCommentary: s.generateCommentary,
		StageStructureReport:    s.structureReport,
		StageHandleError:        s.handleError,
	}
}

func (s *Stages) parseRequest(ctx context.Context, st *State) Patch {
	s.log.Info("parsing user request")
	start := time.Now()
	profile, err := s.advisor.ParseProfile(ctx, st.Request)
	s.metrics.RecordLatency("advisor_parse_profile", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("advisor")
		s.log.Error("parse user request failed", logger.Error(err))
		return Patch{Error: fmt.Sprintf("Failed to parse user request with LLM: %v", err)}
	}

	universe := models.NormalizeSymbols(profile.SuggestedAssets)
	profile.SuggestedAssets = universe
	if len(universe) == 0 {
		s.log.Error("no assets identified by request parsing")
		return Patch{Profile: &profile, Universe: []string{}, Error: "No assets were identified or generated to proceed."}
	}
	s.log.Info("request parsed", logger.Strings("universe", universe))
	return Patch{Profile: &profile, Universe: universe}
}

func newsQuery(p *models.Profile, universe []string) string {
	goal, risk := "general investing", "medium"
	if p != nil {
		if p.Goal != "" {
			goal = p.Goal
		}
		if p.RiskTolerance != "" {
			risk = p.RiskTolerance
		}
	}
	q := fmt.Sprintf("Recent market news relevant to investment goal '%s' with risk tolerance '%s'", goal, risk)
	if len(universe) > 0 {
		q += " focusing on potential assets like " + strings.Join(universe, ", ")
	}
	return q
}

// fetchNews never fails the run: errors end up in the digest itself.
func (s *Stages) fetchNews(ctx context.Context, st *State) Patch {
	if s.news == nil {
		s.log.Warn("news source not configured, skipping market news")
		return Patch{News: str(newsNotConfigured)}
	}
	q := newsQuery(st.Profile, st.Universe)
	start := time.Now()
	digest, err := s.news.News(ctx, q)
	s.metrics.RecordLatency("news", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("news")
		s.log.Error("fetch market news failed", logger.Error(err))
		return Patch{News: str(fmt.Sprintf("Failed to fetch news: %v", err))}
	}
	s.log.Info("market news fetched", logger.String("query", q), logger.Int("chars", len(digest)))
	return Patch{News: &digest}
}

func (s *Stages) fetchData(ctx context.Context, st *State) Patch {
	universe := st.Universe
	if len(universe) == 0 && st.Profile != nil {
		universe = models.NormalizeSymbols(st.Profile.SuggestedAssets)
	}
	if len(universe) == 0 {
		return Patch{Error: "Cannot fetch data: No assets were identified in the user request or previous steps."}
	}

	var profile models.Profile
	if st.Profile != nil {
		profile = *st.Profile
	}
	window, basis := ResolveRange(profile, s.now(), s.defaultYears)
	tickers := append([]string{}, universe...)
	if !contains(tickers, s.benchmark) {
		tickers = append(tickers, s.benchmark)
	}
	s.log.Info("fetching financial data",
		logger.Strings("tickers", tickers),
		logger.String("window", window.String()),
		logger.String("basis", basis))

	data := make(models.PriceData, len(tickers))
	for _, sym := range tickers {
		start := time.Now()
		series, err := s.prices.History(ctx, sym, window)
		s.metrics.RecordLatency("price_history", time.Since(start).Seconds())
		if err != nil {
			s.metrics.RecordError("price_history")
			s.log.Warn("no history, skipping ticker", logger.String("symbol", sym), logger.Error(err))
			continue
		}
		if len(series) == 0 {
			s.log.Warn("empty history, skipping ticker", logger.String("symbol", sym))
			continue
		}
		data[sym] = series
	}

	if _, ok := data[s.benchmark]; !ok {
		s.log.Error("benchmark data unavailable, manual beta disabled", logger.String("benchmark", s.benchmark))
	}
	if len(data) == 0 {
		return Patch{Error: "Failed to fetch ANY valid data for the identified assets or benchmark. Cannot proceed."}
	}

	valid := make([]string, 0, len(universe))
	var missing []string
	for _, sym := range universe {
		if sym == s.benchmark {
			continue
		}
		if _, ok := data[sym]; ok {
			valid = append(valid, sym)
		} else {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 {
		s.log.Warn("fetched data for a subset of the universe",
			logger.Int("valid", len(valid)),
			logger.Int("requested", len(universe)),
			logger.Strings("missing", missing))
	}
	return Patch{PriceData: data, Universe: valid}
}

func (s *Stages) computeMetrics(ctx context.Context, st *State) Patch {
	if len(st.PriceData) == 0 {
		return Patch{Error: "Cannot calculate metrics: Financial data is missing."}
	}
	bundle := s.engine.Compute(ctx, st.PriceData, nil)
	if bundle.HasError() {
		return Patch{Metrics: bundle, Error: "Metrics calculation failed: " + bundle.Error}
	}
	if len(st.Allocation) > 0 {
		withPortfolio := s.engine.Compute(ctx, st.PriceData, st.Allocation)
		bundle.Portfolio, bundle.PortfolioError = withPortfolio.Portfolio, withPortfolio.PortfolioError
	}
	return Patch{Metrics: bundle}
}

func (s *Stages) proposeAllocation(ctx context.Context, st *State) Patch {
	if st.Profile == nil || st.Metrics == nil || len(st.Universe) == 0 {
		return Patch{Error: "Missing required inputs (profile, metrics, or asset universe) to propose portfolio."}
	}

	start := time.Now()
	proposal, err := s.advisor.ProposeAllocation(ctx, models.ProposalInput{
		Profile:  *st.Profile,
		Universe: st.Universe,
		Metrics:  st.Metrics,
		News:     st.News,
	})
	s.metrics.RecordLatency("advisor_propose", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("advisor")
		s.log.Error("propose portfolio failed", logger.Error(err))
		return Patch{Error: fmt.Sprintf("Failed to propose portfolio with LLM: %v", err)}
	}

	inUniverse := make(map[string]bool, len(st.Universe))
	for _, sym := range st.Universe {
		inUniverse[sym] = true
	}
	filtered := proposal.Allocation.Upper().Restrict(func(sym string) bool { return inUniverse[sym] })
	if len(filtered) == 0 {
		return Patch{Error: "LLM proposed portfolio contained no valid/available assets."}
	}
	alloc := filtered
	if normalized, ok := filtered.Normalized(); ok {
		if sum := filtered.Sum(); sum < 0.95 || sum > 1.05 {
			s.log.Info("re-normalized portfolio weights", logger.Float64("from_sum", sum))
		}
		alloc = normalized
	}
	s.log.Info("portfolio proposed", logger.Any("allocation", alloc))
	return Patch{Allocation: alloc, Reasoning: str(proposal.Reasoning)}
}

func (s *Stages) validate(ctx context.Context, st *State) Patch {
	var p Patch
	metrics := st.Metrics
	if len(st.Allocation) > 0 && len(st.PriceData) > 0 {
		recomputed := s.engine.Compute(ctx, st.PriceData, st.Allocation)
		merged := &models.Bundle{}
		if metrics != nil {
			*merged = *metrics
		}
		merged.Portfolio, merged.PortfolioError = recomputed.Portfolio, recomputed.PortfolioError
		metrics = merged
		p.Metrics = merged
	}
	res := s.engine.Validate(st.Allocation, metrics)
	p.Validation = &res
	return p
}

func (s *Stages) generateCommentary(ctx context.Context, st *State) Patch {
	in := models.CommentaryInput{
		Allocation: st.Allocation,
		Metrics:    st.Metrics,
		Validation: st.Validation,
		News:       st.News,
		Reasoning:  st.Reasoning,
	}
	if st.Profile != nil {
		in.Profile = *st.Profile
	}

	start := time.Now()
	text, err := s.advisor.Commentary(ctx, in)
	s.metrics.RecordLatency("advisor_commentary", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("advisor")
		s.log.Error("generate commentary failed", logger.Error(err))
		return Patch{Commentary: str(fmt.Sprintf("Failed to generate commentary: %v", err))}
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "not financial advice") && !strings.Contains(lower, "disclaimer") {
		text += commentaryDisclaim
	}
	return Patch{Commentary: &text}
}

func (s *Stages) structureReport(_ context.Context, st *State) Patch {
	in := report.Input{
		Allocation: st.Allocation,
		Metrics:    st.Metrics,
		Validation: st.Validation,
		News:       st.News,
		Commentary: st.Commentary,
		Reasoning:  st.Reasoning,
		Error:      st.Error,
	}
	if st.Profile != nil {
		in.Profile = *st.Profile
	}
	return Patch{Report: str(s.reports.Markdown(in))}
}

func (s *Stages) handleError(_ context.Context, st *State) Patch {
	s.log.Error("pipeline failed", logger.String("error", st.Error), logger.String("after", st.Step.String()))
	return Patch{Report: str(report.ErrorReport(st.Error))}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
