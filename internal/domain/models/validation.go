package models

type ValidationStatus string

const (
	ValidationPass ValidationStatus = "pass"
	ValidationFail ValidationStatus = "fail"
)

// ValidationResult is a pass/fail verdict with itemized issues.
// Errors is empty whenever Status is pass.
type ValidationResult struct {
	Status ValidationStatus `json:"status"`
	Errors []string         `json:"errors"`
}

func (v *ValidationResult) Passed() bool {
	return v != nil && v.Status == ValidationPass
}
