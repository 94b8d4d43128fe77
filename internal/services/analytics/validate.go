package analytics

import (
	"fmt"
	"math"

	"FinFolio/internal/domain/models"
	"FinFolio/pkg/logger"
)

// weightSumTolerance is how far the raw weight sum may drift from 1.
const weightSumTolerance = 0.01

// Validate checks an allocation and the metrics computed for it.
// Negative weights are allowed (short positions) and only logged.
func (e *Engine) Validate(alloc models.Allocation, bundle *models.Bundle) models.ValidationResult {
	res := models.ValidationResult{Status: models.ValidationPass, Errors: []string{}}
	fail := func(msg string) {
		res.Status = models.ValidationFail
		res.Errors = append(res.Errors, msg)
	}

	if len(alloc) == 0 {
		fail("Portfolio allocation is missing or not a dictionary.")
		e.log.Warn("validation failed", logger.Strings("errors", res.Errors))
		return res
	}
	if bundle == nil {
		fail("Metrics data is missing or not a dictionary.")
		bundle = &models.Bundle{}
	}

	if sum := alloc.Sum(); math.Abs(sum-1) >= weightSumTolerance {
		fail(fmt.Sprintf("Portfolio weights sum to %.4f, significantly different from 1.0.", sum))
	}
	for _, sym := range alloc.Symbols() {
		if alloc[sym] < 0 {
			e.log.Info("portfolio contains negative weights (potential short positions)")
			break
		}
	}

	switch {
	case bundle.PortfolioError != "":
		fail("Portfolio metrics calculation reported an error: " + bundle.PortfolioError)
	case bundle.Portfolio == nil:
		fail("Portfolio metrics dictionary is missing within the metrics results.")
	}

	e.log.Info("validation complete", logger.String("status", string(res.Status)), logger.Int("errors", len(res.Errors)))
	return res
}
