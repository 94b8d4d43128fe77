package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Requests for the portfolio HTTP endpoint. Defined in domain so the CLI can
// compose the same request text.

type PortfolioRequest struct {
	Request       string   `json:"request" validate:"omitempty,min=10,max=4000"`
	Capital       *float64 `json:"capital" validate:"omitempty,gt=0"`
	TimeHorizon   string   `json:"time_horizon" validate:"required_without=Request,max=100"`
	RiskTolerance string   `json:"risk_tolerance" validate:"required_without=Request,max=100"`
	Preferences   string   `json:"preferences" validate:"max=1000"`
}

// Text returns the natural-language request the pipeline consumes.
func (r PortfolioRequest) Text() string {
	if strings.TrimSpace(r.Request) != "" {
		return strings.TrimSpace(r.Request)
	}
	return ComposeRequest(r.Capital, r.TimeHorizon, r.RiskTolerance, r.Preferences)
}

// ComposeRequest builds the request sentence from the interactive answers.
func ComposeRequest(capital *float64, horizon, risk, preferences string) string {
	amount := "an amount"
	if capital != nil {
		amount = strconv.FormatFloat(*capital, 'f', -1, 64)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I want to invest $%s for a time horizon of %s. My risk tolerance is %s.",
		amount, strings.TrimSpace(horizon), strings.TrimSpace(risk))
	if p := strings.TrimSpace(preferences); p != "" {
		fmt.Fprintf(&b, " Specific preferences: %s.", p)
	} else {
		b.WriteString(" No specific preferences mentioned.")
	}
	return b.String()
}

// PortfolioResponse is the API view of a finished run.
type PortfolioResponse struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	Step       string            `json:"step"`
	Error      string            `json:"error,omitempty"`
	Report     string            `json:"report"`
	Allocation Allocation        `json:"allocation,omitempty"`
	Metrics    *Bundle           `json:"metrics,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	OutputDir  string            `json:"output_dir,omitempty"`
}
