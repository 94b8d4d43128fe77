package usecase

import (
	"time"

	"FinFolio/internal/domain/models"
)

// State is the record threaded through one pipeline run. A non-empty Error
// means the run has failed; only HandleError runs after that.
type State struct {
	RunID       string
	StartedAt   time.Time
	Request     string
	Profile     *models.Profile
	Universe    []string
	News        string
	PriceData   models.PriceData
	Metrics     *models.Bundle
	Allocation  models.Allocation
	Reasoning   string
	Validation  *models.ValidationResult
	Commentary  string
	Report      string
	Error       string
	Step        Stage
	Transitions int
}

func (s *State) Failed() bool { return s.Error != "" }

// Patch is a stage's partial update. Nil fields leave the state untouched.
type Patch struct {
	Profile    *models.Profile
	Universe   []string
	News       *string
	PriceData  models.PriceData
	Metrics    *models.Bundle
	Allocation models.Allocation
	Reasoning  *string
	Validation *models.ValidationResult
	Commentary *string
	Report     *string
	Error      string
}

// Apply merges p into s. Later values win.
func (s *State) Apply(p Patch) {
	if p.Profile != nil {
		s.Profile = p.Profile
	}
	if p.Universe != nil {
		s.Universe = p.Universe
	}
	if p.News != nil {
		s.News = *p.News
	}
	if p.PriceData != nil {
		s.PriceData = p.PriceData
	}
	if p.Metrics != nil {
		s.Metrics = p.Metrics
	}
	if p.Allocation != nil {
		s.Allocation = p.Allocation
	}
	if p.Reasoning != nil {
		s.Reasoning = *p.Reasoning
	}
	if p.Validation != nil {
		s.Validation = p.Validation
	}
	if p.Commentary != nil {
		s.Commentary = *p.Commentary
	}
	if p.Report != nil {
		s.Report = *p.Report
	}
	if p.Error != "" {
		s.Error = p.Error
	}
}

func str(s string) *string { return &s }
