package usecase

import (
	"context"
	"errors"
	"time"

	"FinFolio/internal/domain/models"
	drepo "FinFolio/internal/domain/repository"
	"FinFolio/internal/services/report"
	"FinFolio/pkg/logger"
)

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusAborted = "aborted"
)

// Result is a finished run plus where its artifacts went.
type Result struct {
	State      *State
	Status     string
	OutputDir  string
	FinishedAt time.Time
}

// Response is the API view of the run.
func (r *Result) Response() models.PortfolioResponse {
	st := r.State
	resp := models.PortfolioResponse{
		RunID:     st.RunID,
		Status:    r.Status,
		Step:      st.Step.String(),
		Error:     st.Error,
		Report:    st.Report,
		OutputDir: r.OutputDir,
	}
	if !st.Failed() {
		resp.Allocation = st.Allocation
		resp.Metrics = st.Metrics
		resp.Validation = st.Validation
	}
	return resp
}

// PortfolioService runs the pipeline and persists and announces the outcome.
type PortfolioService struct {
	pipeline  *Pipeline
	artifacts drepo.ArtifactStore
	publisher drepo.RunPublisher
	metrics   drepo.Metrics
	log       *logger.Logger
}

func NewPortfolioService(p *Pipeline, artifacts drepo.ArtifactStore, publisher drepo.RunPublisher, metrics drepo.Metrics, log *logger.Logger) *PortfolioService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PortfolioService{pipeline: p, artifacts: artifacts, publisher: publisher, metrics: metrics, log: log}
}

// Generate always returns a result with a report. Artifact and publish
// failures are logged and do not fail the run.
func (s *PortfolioService) Generate(ctx context.Context, request string) *Result {
	st, err := s.pipeline.Run(ctx, request)
	res := &Result{State: st, Status: RunStatusSuccess}
	switch {
	case errors.Is(err, ErrTransitionLimit):
		res.Status = RunStatusAborted
		if st.Error == "" {
			st.Error = err.Error()
		}
		st.Report = report.ErrorReport(st.Error)
	case st.Failed():
		res.Status = RunStatusFailed
	}
	res.FinishedAt = time.Now()
	s.metrics.RecordRun(res.Status)
	s.metrics.RecordLatency("run", res.FinishedAt.Sub(st.StartedAt).Seconds())

	if s.artifacts != nil {
		dir, err := s.artifacts.Save(ctx, &drepo.RunResult{
			RunID:      st.RunID,
			StartedAt:  st.StartedAt,
			Failed:     st.Failed(),
			Error:      st.Error,
			Report:     st.Report,
			Allocation: st.Allocation,
			Metrics:    st.Metrics,
		})
		if err != nil {
			s.metrics.RecordError("artifacts")
			s.log.Error("save artifacts failed", logger.String("run_id", st.RunID), logger.Error(err))
		}
		res.OutputDir = dir
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, summarize(res)); err != nil {
			s.metrics.RecordError("publish")
			s.log.Warn("publish run summary failed", logger.String("run_id", st.RunID), logger.Error(err))
		}
	}
	return res
}

func summarize(r *Result) *drepo.RunSummary {
	st := r.State
	sum := &drepo.RunSummary{
		RunID:       st.RunID,
		Status:      r.Status,
		Step:        st.Step.String(),
		Error:       st.Error,
		Universe:    st.Universe,
		Allocation:  st.Allocation,
		Transitions: st.Transitions,
		OutputDir:   r.OutputDir,
		StartedAt:   st.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if st.Validation != nil {
		sum.Validation = string(st.Validation.Status)
	}
	return sum
}
