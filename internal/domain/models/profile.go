package models

import (
	"encoding/json"
	"strconv"
)

// Profile is the structured investor profile extracted from a free-text request.
type Profile struct {
	Goal                string          `json:"goal"`
	RiskTolerance       string          `json:"risk_tolerance"`
	TimeHorizon         Horizon         `json:"time_horizon"`
	InitialCapital      *float64        `json:"initial_capital"`
	Preferences         json.RawMessage `json:"preferences,omitempty"`
	SpecificPreferences string          `json:"specific_preferences,omitempty"`
	SuggestedAssets     []string        `json:"suggested_assets"`
	StartDate           string          `json:"start_date,omitempty"`
	EndDate             string          `json:"end_date,omitempty"`
}

// Horizon is the free-text investment horizon. A bare JSON number is read as years.
type Horizon string

func (h *Horizon) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*h = Horizon(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*h = Horizon(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// PreferencesText returns the free-text preferences, falling back to the raw
// structured preferences when no string form was extracted.
func (p Profile) PreferencesText() string {
	if p.SpecificPreferences != "" {
		return p.SpecificPreferences
	}
	if len(p.Preferences) == 0 || string(p.Preferences) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Preferences, &s); err == nil {
		return s
	}
	return string(p.Preferences)
}

// Proposal is an allocation suggested by the advisor.
type Proposal struct {
	Allocation Allocation `json:"portfolio_allocation"`
	Reasoning  string     `json:"reasoning"`
}

// ProposalInput is the context handed to the advisor for an allocation proposal.
type ProposalInput struct {
	Profile  Profile
	Universe []string
	Metrics  *Bundle
	News     string
}

// CommentaryInput is the context handed to the advisor for the final narrative.
type CommentaryInput struct {
	Profile    Profile
	Allocation Allocation
	Metrics    *Bundle
	Validation *ValidationResult
	News       string
	Reasoning  string
}
