package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"FinFolio/internal/domain/models"
)

const (
	ratioPlaces = 4 // returns, volatility, drawdown, weights, CAPM
	coefPlaces  = 2 // Sharpe, beta, moving averages
)

// round rounds half away from zero. Non-finite values pass through.
func round(v float64, places int32) models.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Float(v)
	}
	return models.Float(decimal.NewFromFloat(v).Round(places).InexactFloat64())
}

func roundPtr(v *float64, places int32) models.NullableFloat {
	if v == nil {
		return nil
	}
	f := round(*v, places)
	return &f
}
