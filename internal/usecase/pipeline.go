package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	drepo "FinFolio/internal/domain/repository"
	"FinFolio/pkg/logger"
)

// DefaultMaxTransitions bounds the number of stage executions per run.
const DefaultMaxTransitions = 20

// ErrTransitionLimit aborts a run that keeps routing without reaching a terminal stage.
var ErrTransitionLimit = errors.New("pipeline transition limit exceeded")

// Handler executes one stage. It must not mutate the state; changes go in the patch.
type Handler func(ctx context.Context, s *State) Patch

// Guard inspects the state after a stage and returns an error message when
// the run cannot continue.
type Guard func(s *State) string

// DefaultRoutes is the success path between stages.
func DefaultRoutes() map[Stage]Stage {
	return map[Stage]Stage{
		StageParseRequest:       StageFetchNews,
		StageFetchNews:          StageFetchData,
		StageFetchData:          StageComputeMetrics,
		StageComputeMetrics:     StageProposeAllocation,
		StageProposeAllocation:  StageValidate,
		StageValidate:           StageGenerateCommentary,
		StageGenerateCommentary: StageStructureReport,
	}
}

// DefaultGuards are the checkpoints after the stages that can come back empty.
func DefaultGuards() map[Stage]Guard {
	return map[Stage]Guard{
		StageParseRequest: func(s *State) string {
			if len(s.Universe) == 0 {
				return "No specific assets identified to proceed with analysis."
			}
			return ""
		},
		StageFetchData: func(s *State) string {
			if len(s.PriceData) == 0 {
				return "No financial data fetched."
			}
			return ""
		},
		StageProposeAllocation: func(s *State) string {
			if len(s.Allocation) == 0 {
				return "No portfolio could be proposed."
			}
			return ""
		},
		StageValidate: func(s *State) string {
			if s.Validation.Passed() {
				return ""
			}
			reason := "Unknown error"
			if s.Validation != nil && len(s.Validation.Errors) > 0 {
				reason = strings.Join(s.Validation.Errors, "; ")
			}
			return "Portfolio validation failed: " + reason
		},
	}
}

// Pipeline is a finite-state machine over Stage. Each run owns its State.
type Pipeline struct {
	handlers       map[Stage]Handler
	routes         map[Stage]Stage
	guards         map[Stage]Guard
	maxTransitions int
	metrics        drepo.Metrics
	log            *logger.Logger
	newID          func() string
	now            func() time.Time
}

type PipelineOption func(*Pipeline)

func WithMaxTransitions(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxTransitions = n
		}
	}
}

// WithRoutes replaces the success-path table.
func WithRoutes(routes map[Stage]Stage) PipelineOption {
	return func(p *Pipeline) { p.routes = routes }
}

func WithGuards(guards map[Stage]Guard) PipelineOption {
	return func(p *Pipeline) { p.guards = guards }
}

func WithPipelineMetrics(m drepo.Metrics) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithRunIDs(gen func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = gen }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(handlers map[Stage]Handler, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		handlers:       handlers,
		routes:         DefaultRoutes(),
		guards:         DefaultGuards(),
		maxTransitions: DefaultMaxTransitions,
		metrics:        nopMetrics{},
		log:            logger.Nop(),
		newID:          uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for request until a terminal stage. The returned
// state is always non-nil; the error is only set when the transition limit
// is hit, in which case the state is partial.
func (p *Pipeline) Run(ctx context.Context, request string) (*State, error) {
	st := &State{RunID: p.newID(), StartedAt: p.now(), Request: request}
	log := p.log.With(logger.String("run_id", st.RunID))
	log.Info("pipeline started")

	stage := StageParseRequest
	for {
		if st.Transitions >= p.maxTransitions {
			log.Error("transition limit exceeded",
				logger.Int("transitions", st.Transitions),
				logger.String("next", stage.String()))
			return st, fmt.Errorf("%w: %d stages executed, next %s", ErrTransitionLimit, st.Transitions, stage)
		}

		st.Apply(p.exec(ctx, stage, st))
		st.Step = stage
		st.Transitions++
		log.Debug("stage finished", logger.String("stage", stage.String()), logger.Bool("failed", st.Failed()))

		if stage.IsTerminal() {
			log.Info("pipeline finished",
				logger.String("step", stage.String()),
				logger.Int("transitions", st.Transitions),
				logger.Bool("failed", st.Failed()))
			return st, nil
		}
		stage = p.route(stage, st)
	}
}

// route picks the stage after from. Any recorded error wins over the success path.
func (p *Pipeline) route(from Stage, st *State) Stage {
	if st.Failed() {
		return StageHandleError
	}
	if g, ok := p.guards[from]; ok {
		if msg := g(st); msg != "" {
			st.Error = msg
			return StageHandleError
		}
	}
	next, ok := p.routes[from]
	if !ok {
		st.Error = fmt.Sprintf("no route from stage %s", from)
		return StageHandleError
	}
	return next
}

func (p *Pipeline) exec(ctx context.Context, stage Stage, st *State) (patch Patch) {
	h, ok := p.handlers[stage]
	if !ok {
		return Patch{Error: fmt.Sprintf("no handler for stage %s", stage)}
	}
	start := time.Now()
	defer func() {
		outcome := "ok"
		if r := recover(); r != nil {
			p.log.Error("stage panicked", logger.String("stage", stage.String()), logger.Any("panic", r))
			patch = Patch{Error: fmt.Sprintf("stage %s panicked: %v", stage, r)}
			outcome = "panic"
		} else if patch.Error != "" {
			outcome = "error"
		}
		p.metrics.RecordStage(stage.String(), outcome, time.Since(start).Seconds())
	}()
	return h(ctx, st)
}

type nopMetrics struct{}

func (nopMetrics) RecordStage(string, string, float64) {}
func (nopMetrics) RecordRun(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
