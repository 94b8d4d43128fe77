package usecase

// Stage names one step of the portfolio pipeline.
type Stage string

const (
	StageParseRequest       Stage = "parse_request"
	StageFetchNews          Stage = "fetch_news"
	StageFetchData          Stage = "fetch_data"
	StageComputeMetrics     Stage = "compute_metrics"
	StageProposeAllocation  Stage = "propose_allocation"
	StageValidate           Stage = "validate"
	StageGenerateCommentary Stage = "generate_commentary"
	StageStructureReport    Stage = "structure_report"
	StageHandleError        Stage = "handle_error"
)

func (s Stage) String() string { return string(s) }

// IsTerminal reports whether the run ends after s executes.
func (s Stage) IsTerminal() bool {
	return s == StageStructureReport || s == StageHandleError
}

// AllStages lists the stages in execution order, error handler last.
func AllStages() []Stage {
	return []Stage{
		StageParseRequest,
		StageFetchNews,
		StageFetchData,
		StageComputeMetrics,
		StageProposeAllocation,
		StageValidate,
		StageGenerateCommentary,
		StageStructureReport,
		StageHandleError,
	}
}
